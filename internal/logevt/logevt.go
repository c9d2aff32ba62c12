// Package logevt provides the structured event stream the pipeline
// reports progress through: every stage transition and warning is
// logged via zap and also collected as a typed Event, so a caller
// embedding the pipeline can inspect what happened without scraping
// stderr.
package logevt

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarn    Kind = "warning"
	KindError   Kind = "error"
)

// Event is the caller-facing record of one log line.
type Event struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream is a zap-backed logger that also accumulates every entry as
// an Event, so the orchestrator can hand a Result.Logs slice back to
// its caller in addition to the usual stderr console output.
type Stream struct {
	logger *zap.Logger

	mu     sync.Mutex
	events []Event
}

// NewStream builds a Stream that writes a human-readable console
// encoding to stderr and mirrors every entry into Events().
func NewStream() *Stream {
	s := &Stream{}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		zapcore.DebugLevel,
	)
	s.logger = zap.New(core, zap.Hooks(s.record))
	return s
}

func (s *Stream) record(entry zapcore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		Kind:      levelToKind(entry.Level),
		Message:   entry.Message,
		Timestamp: entry.Time,
	})
	return nil
}

func levelToKind(lvl zapcore.Level) Kind {
	switch {
	case lvl >= zapcore.ErrorLevel:
		return KindError
	case lvl == zapcore.WarnLevel:
		return KindWarn
	default:
		return KindInfo
	}
}

func (s *Stream) Info(msg string, fields ...zap.Field)  { s.logger.Info(msg, fields...) }
func (s *Stream) Warn(msg string, fields ...zap.Field)  { s.logger.Warn(msg, fields...) }
func (s *Stream) Error(msg string, fields ...zap.Field) { s.logger.Error(msg, fields...) }

// Success logs at info level but records the event as KindSuccess
// rather than KindInfo, for terminal "this stage completed" lines a
// caller cares to distinguish from ordinary progress notes.
func (s *Stream) Success(msg string, fields ...zap.Field) {
	s.logger.Info(msg, fields...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.events); n > 0 {
		s.events[n-1].Kind = KindSuccess
	}
}

// Events returns a copy of every entry logged so far, in order.
func (s *Stream) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Sync flushes the underlying zap core.
func (s *Stream) Sync() error { return s.logger.Sync() }
