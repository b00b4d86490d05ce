// internal/interact/sink.go
package interact

import (
	"context"

	"go.uber.org/zap"
)

// OutcomeSink receives every outcome the executor produces.
type OutcomeSink interface {
	Record(ctx context.Context, o Outcome) error
}

// LogSink writes outcomes to a zap logger. Fallback use is logged at Info
// and failures at Warn so they stand out in run logs.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, o Outcome) error {
	fields := []zap.Field{
		zap.String("target", o.Target),
		zap.String("action", string(o.Action)),
		zap.String("path", string(o.Path)),
		zap.Int("strategy_index", o.StrategyIndex),
		zap.Duration("duration", o.Duration),
	}
	switch o.Status {
	case StatusSucceeded:
		s.logger.Debug("Interaction succeeded.", fields...)
	case StatusSucceededViaFallback:
		s.logger.Info("Interaction succeeded via scripted fallback.", fields...)
	default:
		fields = append(fields, zap.String("kind", string(o.FailureKind())), zap.Error(o.Err))
		s.logger.Warn("Interaction failed.", fields...)
	}
	return nil
}

// SinkFunc adapts a function to OutcomeSink.
type SinkFunc func(ctx context.Context, o Outcome) error

func (f SinkFunc) Record(ctx context.Context, o Outcome) error { return f(ctx, o) }
