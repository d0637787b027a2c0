// Package sinks provides Sink implementations for the progress hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/feedwatch/feedwatch/internal/progress"
)

// LogSink emits structured logs for each progress event. Useful during
// development and when running without a metrics backend.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("round_id", evt.RoundUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("source", evt.Source),
			zap.Int("items", evt.Items),
			zap.Int("attempts", evt.Attempts),
			zap.Int("sources", evt.Sources),
			zap.String("result", string(evt.Result)),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
