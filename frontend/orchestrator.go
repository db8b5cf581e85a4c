package frontend

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/vio-frontend/camera"
	"go.viam.com/vio-frontend/fast"
	"go.viam.com/vio-frontend/geometry"
	"go.viam.com/vio-frontend/gridstore"
	"go.viam.com/vio-frontend/imuintegrator"
	"go.viam.com/vio-frontend/klt"
	"go.viam.com/vio-frontend/pyramid"
)

// prevFeature is the flattened form of one previous-store FeatureRecord,
// used to carry parallel id/lifetime/point arrays through tracking.
type prevFeature struct {
	id       gridstore.FeatureID
	lifetime int
	leftPt   r2.Point
	rightPt  r2.Point
}

// state names the two reachable orchestrator states; FirstFrame is
// transient (one call to processFrame) rather than a resting state, so it
// is folded into the uninitialized->steady transition rather than kept as
// its own value here.
type state int

const (
	stateUninitialized state = iota
	stateSteady
)

const replenishMaskRadius = 2 // 5x5 neighborhood around each existing feature.

// Orchestrator owns the previous/current frame buffers and drives the
// track -> match -> ransac -> replenish -> prune -> publish pipeline. IMU
// and frame arrival are thin enqueuers; all mutation happens on the single
// processing goroutine started by Start. Each of the two producers has its
// own queue (a frame channel and the mutex-guarded IMU queue), and both are
// drained by that single processing loop.
type Orchestrator struct {
	cfg       Config
	cam0      *camera.Calibration
	cam1      *camera.Calibration
	logger    golog.Logger
	metrics   *Metrics
	publisher Publisher

	imuQueue *imuintegrator.Queue

	mu            sync.Mutex
	st            state
	firstFrameSet bool
	prevTimestamp float64
	prevPyr0      *pyramid.Pyramid
	prevPyr1      *pyramid.Pyramid
	freePyr0      *pyramid.Pyramid
	freePyr1      *pyramid.Pyramid
	prevStore     *gridstore.GridStore

	rCam0Imu *mat.Dense
	rCam1Imu *mat.Dense

	frames chan StereoFrame

	workersMu  sync.Mutex
	cancel     context.CancelFunc
	background sync.WaitGroup
}

// NewOrchestrator builds an Orchestrator from a validated Config.
func NewOrchestrator(cfg Config, logger golog.Logger, metrics *Metrics, publisher Publisher) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cam0, cam1, err := buildCalibrations(cfg)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = golog.NewLogger("vio-frontend")
	}
	return &Orchestrator{
		cfg:       cfg,
		cam0:      cam0,
		cam1:      cam1,
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
		imuQueue:  imuintegrator.NewQueue(),
		rCam0Imu:  cam0.RCamImu(),
		rCam1Imu:  cam1.RCamImu(),
		frames:    make(chan StereoFrame, 8),
	}, nil
}

// buildCalibrations constructs both cameras' Calibration from cfg,
// composing cam1's T_cn_cnm1 (cam0->cam1) with cam0's raw T_cam_imu to
// recover cam1's IMU extrinsics: T_imu_cam1 = T_cam0_cam1 * T_imu_cam0.
func buildCalibrations(cfg Config) (*camera.Calibration, *camera.Calibration, error) {
	warnUnknown := func(name string) {
		golog.NewLogger("vio-frontend").Warnw("unknown distortion model, falling back to radtan", "model", name)
	}

	tImuCam0 := camera.SE3FromRows(cfg.Cam0.TCamImu)
	cam0, err := camera.NewCalibration(cfg.Cam0.CameraIntrinsics(), cfg.Cam0.DistortionModel, cfg.Cam0.DistortionCoeffs, tImuCam0, warnUnknown)
	if err != nil {
		return nil, nil, err
	}

	tCam0Cam1 := camera.SE3FromRows(cfg.Cam1.TCnCnm1)
	tImuCam1 := camera.Compose(tImuCam0, tCam0Cam1)
	cam1, err := camera.NewCalibration(cfg.Cam1.CameraIntrinsics(), cfg.Cam1.DistortionModel, cfg.Cam1.DistortionCoeffs, tImuCam1, warnUnknown)
	if err != nil {
		return nil, nil, err
	}
	return cam0, cam1, nil
}

// Start launches the single background processing goroutine that drains
// HandleStereoFrame's queue. It is safe to call HandleImuSample without
// ever calling Start (IMU samples only ever touch the mutex-guarded
// queue), but no stereo frame is processed until Start runs.
func (o *Orchestrator) Start(ctx context.Context) {
	o.workersMu.Lock()
	defer o.workersMu.Unlock()
	if o.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.background.Add(1)
	goutils.PanicCapturingGo(func() {
		defer o.background.Done()
		o.run(runCtx)
	})
}

// Stop cancels the background goroutine and waits for the in-flight frame,
// if any, to finish — cancellation never aborts mid-frame.
func (o *Orchestrator) Stop() {
	o.workersMu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.workersMu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.background.Wait()
}

func (o *Orchestrator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-o.frames:
			if _, err := o.ProcessFrame(frame); err != nil {
				o.logger.Warnw("frame processing failed", "err", err)
			}
		}
	}
}

// HandleStereoFrame enqueues a stereo pair for processing on the
// background goroutine. It blocks if the queue is full, providing natural
// back-pressure onto the frame producer.
func (o *Orchestrator) HandleStereoFrame(ctx context.Context, frame StereoFrame) {
	select {
	case o.frames <- frame:
	case <-ctx.Done():
	}
}

// HandleImuSample appends an IMU sample to the queue once the first stereo
// frame has been processed; samples arriving before that are dropped since
// there is no previous timestamp yet to integrate from.
func (o *Orchestrator) HandleImuSample(sample ImuSample) {
	o.mu.Lock()
	ready := o.firstFrameSet
	o.mu.Unlock()
	if !ready {
		return
	}
	o.imuQueue.Push(imuintegrator.Sample{Timestamp: sample.Timestamp, AngularVelocity: sample.AngularVelocity})
}

// ProcessFrame runs one full pipeline pass for frame and returns the
// TrackingInfo counters. It is exported directly (rather
// than only reachable via HandleStereoFrame) so callers and tests can drive
// the pipeline synchronously without the background goroutine.
func (o *Orchestrator) ProcessFrame(frame StereoFrame) (TrackingInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	start := time.Now()

	if err := o.validateFrame(frame); err != nil {
		o.metrics.IncFramesDropped()
		return TrackingInfo{}, err
	}

	traceID := uuid.NewString()
	pyr0, pyr1 := o.freePyr0, o.freePyr1
	if pyr0 == nil {
		pyr0 = &pyramid.Pyramid{}
	}
	if pyr1 == nil {
		pyr1 = &pyramid.Pyramid{}
	}
	pyramid.BuildInto(pyr0, frame.LeftImage, o.cfg.PyramidLevels)
	pyramid.BuildInto(pyr1, frame.RightImage, o.cfg.PyramidLevels)

	var info TrackingInfo
	var err error
	if o.st == stateUninitialized {
		info, err = o.processFirstFrame(frame, pyr0, pyr1)
	} else {
		info, err = o.processSteadyFrame(frame, pyr0, pyr1)
	}
	if err != nil {
		o.logger.Warnw("frame processing error, retrying next frame from same baseline", "trace_id", traceID, "err", err)
		return info, err
	}

	o.prevTimestamp = frame.Timestamp
	// The buffer that was "previous" until now is two frames stale and safe
	// to overwrite on the next call; swap it into the free slot instead of
	// letting it be garbage, and promote this frame's pyramid to previous.
	o.freePyr0, o.freePyr1 = o.prevPyr0, o.prevPyr1
	o.prevPyr0, o.prevPyr1 = pyr0, pyr1
	o.metrics.Observe(info)
	o.metrics.SetActiveFeatures(o.prevStore.Count())
	o.metrics.ObserveLatency(time.Since(start).Seconds())
	o.publisher.PublishTrackingInfo(info)
	return info, nil
}

func (o *Orchestrator) validateFrame(frame StereoFrame) error {
	if frame.LeftImage == nil || frame.RightImage == nil {
		return ErrFrameDropped
	}
	lb, rb := frame.LeftImage.Bounds(), frame.RightImage.Bounds()
	if lb.Dx() != o.cam0.Intrinsics.Width || lb.Dy() != o.cam0.Intrinsics.Height {
		return ErrFrameDropped
	}
	if rb.Dx() != o.cam1.Intrinsics.Width || rb.Dy() != o.cam1.Intrinsics.Height {
		return ErrFrameDropped
	}
	if o.st != stateUninitialized && frame.Timestamp <= o.prevTimestamp {
		return ErrFrameDropped
	}
	return nil
}

// processFirstFrame detects, stereo-matches, buckets, admits up to
// GridMinFeatureNum per cell, and transitions to Steady.
func (o *Orchestrator) processFirstFrame(frame StereoFrame, pyr0, pyr1 *pyramid.Pyramid) (TrackingInfo, error) {
	fastCfg := o.fastConfig()
	detected := fast.ComputeFAST(pyr0.Levels[0].Img, fastCfg)
	leftPts := make([]r2.Point, len(detected))
	for i, p := range detected {
		leftPts[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}

	rightPts, responses, matchOk := o.stereoMatch(leftPts, nil, pyr0, pyr1, detected)

	store := gridstore.NewGridStore(o.cfg.GridRow, o.cfg.GridCol)
	byCell := map[int][]int{}
	for i, ok := range matchOk {
		if !ok {
			continue
		}
		cell := store.Bucket(leftPts[i], frame.LeftImage.Bounds().Dx(), frame.LeftImage.Bounds().Dy())
		byCell[cell] = append(byCell[cell], i)
	}
	for cell, idxs := range byCell {
		sortIndicesByResponseDesc(idxs, responses)
		for k, idx := range idxs {
			if k >= o.cfg.GridMinFeatureNum {
				break
			}
			store.Admit(cell, gridstore.FeatureRecord{
				Response: responses[idx],
				LeftPt:   leftPts[idx],
				RightPt:  rightPts[idx],
			})
		}
	}

	o.prevStore = store
	o.st = stateSteady
	o.firstFrameSet = true

	info := TrackingInfo{
		Timestamp:      frame.Timestamp,
		BeforeTracking: len(detected),
		AfterTracking:  len(detected),
		AfterMatching:  countTrue(matchOk),
		AfterRansac:    store.Count(),
	}
	o.publish(frame.Timestamp, store)
	return info, nil
}

// processSteadyFrame runs the steady-state pipeline: integrate IMU, flatten
// the previous store, temporally track, stereo-match, RANSAC per camera,
// re-bucket survivors, replenish under-filled cells, and prune oversized
// ones.
func (o *Orchestrator) processSteadyFrame(frame StereoFrame, pyr0, pyr1 *pyramid.Pyramid) (TrackingInfo, error) {
	rotations := imuintegrator.Integrate(o.imuQueue, o.prevTimestamp, frame.Timestamp, []*mat.Dense{o.rCam0Imu, o.rCam1Imu})
	rPrevCurrCam0, rPrevCurrCam1 := rotations[0].R, rotations[1].R

	// (b) flatten previous store.
	var prev []prevFeature
	o.prevStore.Iterate(func(_ int, recs []gridstore.FeatureRecord) {
		for _, r := range recs {
			prev = append(prev, prevFeature{id: r.ID, lifetime: r.Lifetime, leftPt: r.LeftPt, rightPt: r.RightPt})
		}
	})
	beforeTracking := len(prev)

	prevLeftPts := make([]r2.Point, len(prev))
	for i, f := range prev {
		prevLeftPts[i] = f.leftPt
	}

	// (c) temporal track: predict via pixel-space rotation compensation,
	// then pyramidal KLT from previous to current cam0 pyramid.
	predicted := klt.PredictPoints(prevLeftPts, homographyFromRotation(&o.cam0.Intrinsics, rPrevCurrCam0))
	kltParams := klt.Params{PatchSize: o.cfg.PatchSize, MaxIteration: o.cfg.MaxIteration, TrackPrecision: o.cfg.TrackPrecision}
	currLeftPts, trackOk := klt.Track(o.prevPyr0, pyr0, prevLeftPts, predicted, kltParams)
	afterTracking := countTrue(trackOk)

	// (d) stereo-match survivors' current left to current right, using the
	// previous right point as the initial guess.
	survivorIdx := make([]int, 0, len(prev))
	for i, ok := range trackOk {
		if ok {
			survivorIdx = append(survivorIdx, i)
		}
	}
	survivorLeftPts := gatherPoints(currLeftPts, survivorIdx)
	guessRightPts := gatherPoints(prevRightPtsOf(prev), survivorIdx)
	matchedRightPts, _, matchOk := o.stereoMatch(survivorLeftPts, guessRightPts, pyr0, pyr1, nil)
	afterMatching := countTrue(matchOk)

	// (e) RANSAC per camera over the stereo-match survivors only; a feature
	// survives iff both cameras mark it inlier.
	var matchedK, matchedIdx []int
	for k, ok := range matchOk {
		if ok {
			matchedK = append(matchedK, k)
			matchedIdx = append(matchedIdx, survivorIdx[k])
		}
	}
	ransacPrevLeft := gatherPoints(prevLeftPts, matchedIdx)
	ransacPrevRight := gatherPoints(prevRightPtsOf(prev), matchedIdx)
	inlier0 := o.ransacFilter(ransacPrevLeft, gatherPoints(survivorLeftPts, matchedK), rPrevCurrCam0, &o.cam0.Intrinsics, o.cam0.Distorter())
	inlier1 := o.ransacFilter(ransacPrevRight, gatherPoints(matchedRightPts, matchedK), rPrevCurrCam1, &o.cam1.Intrinsics, o.cam1.Distorter())

	newStore := gridstore.NewGridStore(o.cfg.GridRow, o.cfg.GridCol)
	afterRansac := 0
	w, h := frame.LeftImage.Bounds().Dx(), frame.LeftImage.Bounds().Dy()
	for j, k := range matchedK {
		if !inlier0[j] || !inlier1[j] {
			continue
		}
		origIdx := survivorIdx[k]
		cell := newStore.Bucket(survivorLeftPts[k], w, h)
		newStore.RefreshSurvivor(cell, gridstore.FeatureRecord{
			ID:       prev[origIdx].id,
			Lifetime: prev[origIdx].lifetime,
			LeftPt:   survivorLeftPts[k],
			RightPt:  matchedRightPts[k],
		})
		afterRansac++
	}

	detectedNew, matchedNew := o.replenish(frame, pyr0, pyr1, newStore)
	o.prune(newStore)

	if matchedNew < 5 && detectedNew > 0 && float64(matchedNew)/float64(detectedNew) < 0.1 {
		o.logger.Warnw("match starvation: images may be unsynced",
			"timestamp", frame.Timestamp, "detected_new", detectedNew, "matched_new", matchedNew)
	}

	o.prevStore = newStore
	info := TrackingInfo{
		Timestamp:      frame.Timestamp,
		BeforeTracking: beforeTracking,
		AfterTracking:  afterTracking,
		AfterMatching:  afterMatching,
		AfterRansac:    afterRansac,
	}
	o.publish(frame.Timestamp, newStore)
	return info, nil
}

// replenish detects new FAST corners away from existing features, buckets
// the raw detections, caps each cell by response before any matching is
// attempted, stereo-matches only the capped set, and tops each under-filled
// cell up to GridMinFeatureNum features in total. It returns the number of
// candidates detected and the number that survived stereo matching, for the
// caller's match-starvation check.
func (o *Orchestrator) replenish(frame StereoFrame, pyr0, pyr1 *pyramid.Pyramid, store *gridstore.GridStore) (detectedNew, matchedNew int) {
	w, h := frame.LeftImage.Bounds().Dx(), frame.LeftImage.Bounds().Dy()

	existing := make(map[image.Point]bool)
	store.Iterate(func(_ int, recs []gridstore.FeatureRecord) {
		for _, r := range recs {
			existing[image.Point{X: int(r.LeftPt.X), Y: int(r.LeftPt.Y)}] = true
		}
	})

	fastCfg := o.fastConfig()
	detected := fast.ComputeFAST(pyr0.Levels[0].Img, fastCfg)
	var candidates []image.Point
	var responses []float64
	for _, p := range detected {
		if nearExisting(p, existing, replenishMaskRadius) {
			continue
		}
		r, ok := fast.ComputeResponseAt(pyr0.Levels[0].Img, p, fastCfg)
		if !ok {
			continue
		}
		candidates = append(candidates, p)
		responses = append(responses, r)
	}
	detectedNew = len(candidates)

	byCell := map[int][]int{}
	for i, p := range candidates {
		cell := store.Bucket(r2.Point{X: float64(p.X), Y: float64(p.Y)}, w, h)
		byCell[cell] = append(byCell[cell], i)
	}

	var cappedIdx []int
	for _, idxs := range byCell {
		sortIndicesByResponseDesc(idxs, responses)
		if len(idxs) > o.cfg.GridMaxFeatureNum {
			idxs = idxs[:o.cfg.GridMaxFeatureNum]
		}
		cappedIdx = append(cappedIdx, idxs...)
	}

	leftPts := make([]r2.Point, len(cappedIdx))
	cappedResponses := make([]float64, len(cappedIdx))
	for i, idx := range cappedIdx {
		leftPts[i] = r2.Point{X: float64(candidates[idx].X), Y: float64(candidates[idx].Y)}
		cappedResponses[i] = responses[idx]
	}
	rightPts, _, matchOk := o.stereoMatch(leftPts, nil, pyr0, pyr1, nil)

	matchedByCell := map[int][]int{}
	for i, ok := range matchOk {
		if !ok {
			continue
		}
		matchedNew++
		cell := store.Bucket(leftPts[i], w, h)
		matchedByCell[cell] = append(matchedByCell[cell], i)
	}
	for cell, idxs := range matchedByCell {
		sortIndicesByResponseDesc(idxs, cappedResponses)
		room := o.cfg.GridMinFeatureNum - store.CellCount(cell)
		for k, idx := range idxs {
			if k >= room {
				break
			}
			store.Admit(cell, gridstore.FeatureRecord{
				Response: cappedResponses[idx],
				LeftPt:   leftPts[idx],
				RightPt:  rightPts[idx],
			})
		}
	}
	return detectedNew, matchedNew
}

// prune truncates any cell over GridMaxFeatureNum after a
// lifetime-descending sort, keeping the longest-tracked features.
func (o *Orchestrator) prune(store *gridstore.GridStore) {
	for cell := 0; cell < store.NumCells(); cell++ {
		if store.CellCount(cell) > o.cfg.GridMaxFeatureNum {
			store.SortByLifetime(cell)
			store.Prune(cell, o.cfg.GridMaxFeatureNum)
		}
	}
}

// stereoMatch finds right-camera correspondences for left-camera points via
// KLT seeded from extrinsics, then rejects epipolar outliers. leftPts are
// cam0 pixel coordinates;
// initialGuess, if non-nil, seeds the KLT search directly (used when
// re-matching a temporally-tracked survivor against its previous right
// point). When initialGuess is nil the guess is computed from extrinsics.
// It returns cam1 pixel points, FAST-detector response scores when
// available (0 for guess-only matches with no detector context), and an
// inlier mask combining bounds and epipolar rejection.
func (o *Orchestrator) stereoMatch(leftPts, initialGuess []r2.Point, pyr0, pyr1 *pyramid.Pyramid, detected []image.Point) ([]r2.Point, []float64, []bool) {
	n := len(leftPts)
	responses := make([]float64, n)
	if detected != nil {
		for i, p := range detected {
			if r, ok := fast.ComputeResponseAt(pyr0.Levels[0].Img, p, o.fastConfig()); ok {
				responses[i] = r
			}
		}
	}

	guess := initialGuess
	if guess == nil {
		rCam0Cam1 := matMul3(transposeOf(o.rCam1Imu), o.rCam0Imu)
		guess = make([]r2.Point, n)
		for i, p := range leftPts {
			xn, yn := o.cam0.Intrinsics.ToNormalized(p).X, o.cam0.Intrinsics.ToNormalized(p).Y
			xu, yu := o.cam0.Distorter().Undistort(xn, yn)
			rv := matVec3Arr(rCam0Cam1, [3]float64{xu, yu, 1})
			var xu1, yu1 float64
			if rv[2] != 0 {
				xu1, yu1 = rv[0]/rv[2], rv[1]/rv[2]
			}
			xd1, yd1 := o.cam1.Distorter().Distort(xu1, yu1)
			guess[i] = o.cam1.Intrinsics.ToPixel(r2.Point{X: xd1, Y: yd1})
		}
	}

	kltParams := klt.Params{PatchSize: o.cfg.PatchSize, MaxIteration: o.cfg.MaxIteration, TrackPrecision: o.cfg.TrackPrecision}
	rightPts, trackOk := klt.Track(pyr0, pyr1, leftPts, guess, kltParams)

	tDiff := subVec(o.cam0.TCamImuTranslation(), o.cam1.TCamImuTranslation())
	tCam0Cam1 := matVec3Vector(transposeOf(o.rCam1Imu), tDiff)
	rCam0Cam1 := matMul3(transposeOf(o.rCam1Imu), o.rCam0Imu)
	e := geometry.Essential(rCam0Cam1, tCam0Cam1)

	u := 4.0 / (o.cam0.Intrinsics.Fx + o.cam0.Intrinsics.Fy + o.cam1.Intrinsics.Fx + o.cam1.Intrinsics.Fy)
	ok := make([]bool, n)
	for i := 0; i < n; i++ {
		if !trackOk[i] || !o.cam1.Intrinsics.InBounds(rightPts[i]) {
			continue
		}
		xn0, yn0 := o.cam0.Intrinsics.ToNormalized(leftPts[i]).X, o.cam0.Intrinsics.ToNormalized(leftPts[i]).Y
		xu0, yu0 := o.cam0.Distorter().Undistort(xn0, yn0)
		xn1, yn1 := o.cam1.Intrinsics.ToNormalized(rightPts[i]).X, o.cam1.Intrinsics.ToNormalized(rightPts[i]).Y
		xu1, yu1 := o.cam1.Distorter().Undistort(xn1, yn1)
		errVal := geometry.EpipolarResidual(e, r2.Point{X: xu0, Y: yu0}, r2.Point{X: xu1, Y: yu1})
		if errVal <= o.cfg.StereoThreshold*u {
			ok[i] = true
		}
	}
	return rightPts, responses, ok
}

// ransacFilter undistorts both point sets and runs two-point RANSAC
// rotation-compensated against rPrevCurr.
func (o *Orchestrator) ransacFilter(prevPts, currPts []r2.Point, rPrevCurr *mat.Dense, in *camera.Intrinsics, d camera.Distorter) []bool {
	n := len(prevPts)
	prevU := make([]r2.Point, n)
	currU := make([]r2.Point, n)
	for i := 0; i < n; i++ {
		xn0, yn0 := in.ToNormalized(prevPts[i]).X, in.ToNormalized(prevPts[i]).Y
		xu0, yu0 := d.Undistort(xn0, yn0)
		prevU[i] = r2.Point{X: xu0, Y: yu0}
		xn1, yn1 := in.ToNormalized(currPts[i]).X, in.ToNormalized(currPts[i]).Y
		xu1, yu1 := d.Undistort(xn1, yn1)
		currU[i] = r2.Point{X: xu1, Y: yu1}
	}
	params := geometry.RansacParams{InlierError: o.cfg.RansacThreshold, SuccessProbability: o.cfg.SuccessProbability}
	return geometry.TwoPointRansac(prevU, currU, rPrevCurr, in.AverageInverseFocalLength(), params)
}

func (o *Orchestrator) fastConfig() *fast.Config {
	return &fast.Config{
		Threshold:      float64(o.cfg.FastThreshold) / 255.0,
		NMatchesCircle: 9,
		NMSWinSize:     7,
		Oriented:       false,
	}
}

// publish builds and emits the outbound CameraMeasurement: every feature's
// left/right points converted to undistorted normalized coordinates, never
// pixels.
func (o *Orchestrator) publish(timestamp float64, store *gridstore.GridStore) {
	var features []FeatureMeasurement
	store.Iterate(func(_ int, recs []gridstore.FeatureRecord) {
		for _, r := range recs {
			xn0, yn0 := o.cam0.Intrinsics.ToNormalized(r.LeftPt).X, o.cam0.Intrinsics.ToNormalized(r.LeftPt).Y
			xu0, yu0 := o.cam0.Distorter().Undistort(xn0, yn0)
			xn1, yn1 := o.cam1.Intrinsics.ToNormalized(r.RightPt).X, o.cam1.Intrinsics.ToNormalized(r.RightPt).Y
			xu1, yu1 := o.cam1.Distorter().Undistort(xn1, yn1)
			features = append(features, FeatureMeasurement{
				ID: r.ID,
				P0: r2.Point{X: xu0, Y: yu0},
				P1: r2.Point{X: xu1, Y: yu1},
			})
		}
	})
	o.publisher.PublishFeatures(CameraMeasurement{Timestamp: timestamp, Features: features})
}
