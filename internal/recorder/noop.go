package recorder

import "context"

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPrediction(_ context.Context, _ *PredictionRecord) error { return nil }
func (n *NoopRecorder) RecordFailure(_ context.Context, _ *FailureEvent) error       { return nil }
func (n *NoopRecorder) RecentPredictions(_ context.Context, _ string, _ int) ([]PredictionRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
