// Package progress defines the one-way progress channel the import pipeline
// reports through. Events are fire-and-forget: a sink must not block and has
// no way to influence the parse.
package progress

import "go.uber.org/zap"

// Stage identifies the pipeline milestone an event belongs to.
type Stage string

const (
	StageInit     Stage = "init"
	StageImages   Stage = "images"
	StageContent  Stage = "content"
	StageBlocks   Stage = "blocks"
	StageStats    Stage = "stats"
	StageComplete Stage = "complete"
)

// Event is a single progress report. Percent is a heuristic blend of
// per-stage weight and within-stage item count, guaranteed non-decreasing
// over the lifetime of one parse.
type Event struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Sink receives progress events. Implementations must be cheap; the
// pipeline calls Publish inline between work items.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish calls f(evt).
func (f SinkFunc) Publish(evt Event) { f(evt) }

// LogSink emits structured logs for each progress event. Useful for the CLI
// and for debugging import runs.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the Sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Publish logs the event with structured fields.
func (s *LogSink) Publish(evt Event) {
	s.logger.Info("import progress",
		zap.String("stage", string(evt.Stage)),
		zap.Int("percent", evt.Percent),
		zap.String("message", evt.Message),
	)
}
