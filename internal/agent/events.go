package agent

import "github.com/rs/zerolog"

// Level classifies pipeline events for consumers that render them.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a structured progress notification emitted by pipeline stages.
// Step, when set, names the coarse phase the run is in ("Fetching URLs",
// "Generating image 2/5", ...).
type Event struct {
	Level   Level  `json:"type"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

// Sink consumes pipeline events. Business logic emits events instead of
// logging so that sinks (console, job log buffer) stay decoupled from it.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards all events.
var NopSink Sink = SinkFunc(func(Event) {})

// MultiSink fans events out to every non-nil sink.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// NewLoggerSink renders events through a zerolog logger.
func NewLoggerSink(logger zerolog.Logger) Sink {
	return SinkFunc(func(e Event) {
		var ev *zerolog.Event
		switch e.Level {
		case LevelError:
			ev = logger.Error()
		case LevelWarning:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		if e.Step != "" {
			ev = ev.Str("step", e.Step)
		}
		ev.Msg(e.Message)
	})
}
