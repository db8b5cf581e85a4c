// Command vio-frontend runs the stereo visual-inertial odometry front-end
// as a standalone process: it reads a JSON calibration/tuning file, wires
// an Orchestrator, and serves Prometheus metrics while the orchestrator
// consumes stereo frames and IMU samples pushed by an external capture
// process (left to a caller-supplied Publisher/driver; this binary only
// owns process lifecycle and configuration).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.viam.com/vio-frontend/frontend"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "vio-frontend",
		Short: "Stereo visual-inertial odometry front-end",
	}
	root.PersistentFlags().String("config", "", "path to the front-end JSON configuration file")
	root.PersistentFlags().String("log-level", "info", "log level: debug or info")
	root.PersistentFlags().String("metrics-addr", ":9090", "address to serve Prometheus /metrics on")
	_ = v.BindPFlags(root.PersistentFlags())
	v.SetEnvPrefix("VIO_FRONTEND")
	v.AutomaticEnv()

	root.AddCommand(newValidateCmd(v))
	root.AddCommand(newRunCmd(v))
	return root
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			fmt.Printf("configuration valid: grid %dx%d, pyramid levels %d\n", cfg.GridRow, cfg.GridCol, cfg.PyramidLevels)
			return nil
		},
	}
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the front-end orchestrator and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}
}

func loadConfig(v *viper.Viper) (*frontend.Config, error) {
	path := v.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	return frontend.LoadConfig(path)
}

func newLogger(level string) golog.Logger {
	if level == "debug" {
		return golog.NewDevelopmentLogger("vio-frontend")
	}
	return golog.NewLogger("vio-frontend")
}

func run(ctx context.Context, v *viper.Viper) error {
	logger := newLogger(v.GetString("log-level"))

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := frontend.NewMetrics(reg)

	orch, err := frontend.NewOrchestrator(*cfg, logger, metrics, frontend.NoopPublisher{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch.Start(ctx)
	defer orch.Stop()

	metricsSrv := &http.Server{
		Addr:              v.GetString("metrics-addr"),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics server stopped", "err", err)
		}
	}()

	logger.Infow("vio-frontend running", "metrics_addr", v.GetString("metrics-addr"))
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}
