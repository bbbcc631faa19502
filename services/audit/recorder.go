package audit

import (
	"go.uber.org/zap"
)

// Event kinds recorded across the request pipeline
const (
	KindStreamOpened    = "stream_opened"
	KindStreamFinished  = "stream_finished"
	KindStreamFailed    = "stream_failed"
	KindPromptAssembled = "prompt_assembled"
	KindRetrievalFailed = "retrieval_failed"
	KindEmbeddingFilled = "embedding_backfilled"
)

// Recorder observes pipeline milestones for operational visibility. It never
// influences request outcomes; implementations must not return errors.
type Recorder interface {
	Event(kind string, fields ...zap.Field)
	Failure(kind string, err error, fields ...zap.Field)
}

// LogRecorder records audit events through a structured logger
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder creates an audit recorder backed by logger
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.Named("audit")}
}

// Event implements Recorder
func (r *LogRecorder) Event(kind string, fields ...zap.Field) {
	r.logger.Info(kind, fields...)
}

// Failure implements Recorder
func (r *LogRecorder) Failure(kind string, err error, fields ...zap.Field) {
	r.logger.Warn(kind, append(fields, zap.Error(err))...)
}

// NopRecorder discards all events, useful in tests
type NopRecorder struct{}

// Event implements Recorder
func (NopRecorder) Event(string, ...zap.Field) {}

// Failure implements Recorder
func (NopRecorder) Failure(string, error, ...zap.Field) {}
