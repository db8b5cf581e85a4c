package frontend

// Publisher is the outbound boundary of the front-end: one call per
// produced CameraMeasurement and one per TrackingInfo. Transport (gRPC,
// a message bus, a ROS topic) is deliberately not implemented here — this
// is the interface contract an Orchestrator depends on, not a concrete
// client.
type Publisher interface {
	PublishFeatures(CameraMeasurement)
	PublishTrackingInfo(TrackingInfo)
}

// NoopPublisher discards everything. Useful as a default in tests and for
// callers that only care about the Orchestrator's side effects on the
// GridStore, not its published output.
type NoopPublisher struct{}

func (NoopPublisher) PublishFeatures(CameraMeasurement) {}
func (NoopPublisher) PublishTrackingInfo(TrackingInfo)  {}
