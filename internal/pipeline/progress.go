package pipeline

import "log/slog"

// Observer receives stage-granular progress events, decoupled from the
// pipeline's own sequencing. Implementations must be fast or hand off to
// their own goroutine; the pipeline calls them inline.
type Observer interface {
	// OnStageStart is called when a stage begins.
	OnStageStart(stage Stage)

	// OnStageComplete is called when a stage finishes, including stages
	// that completed by degrading (e.g. detection with no boundary).
	OnStageComplete(stage Stage)

	// OnError is called when a stage fails in a way that affects the run:
	// a recovered fallback (rectification skipped) or an abort.
	OnError(stage Stage, err error)
}

// NoOpObserver implements Observer and does nothing. Useful as a default.
type NoOpObserver struct{}

func (NoOpObserver) OnStageStart(Stage)    {}
func (NoOpObserver) OnStageComplete(Stage) {}
func (NoOpObserver) OnError(Stage, error)  {}

// LogObserver logs progress events through slog.
type LogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogObserver creates a log-based progress observer.
func NewLogObserver(logger *slog.Logger, level slog.Level) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger, level: level}
}

func (l *LogObserver) OnStageStart(stage Stage) {
	l.logger.Log(nil, l.level, "stage started", "stage", stage.String())
}

func (l *LogObserver) OnStageComplete(stage Stage) {
	l.logger.Log(nil, l.level, "stage complete", "stage", stage.String())
}

func (l *LogObserver) OnError(stage Stage, err error) {
	l.logger.Error("stage error", "stage", stage.String(), "error", err)
}

// MultiObserver fans events out to several observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates an observer that reports to all of the given
// observers in order.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return &MultiObserver{observers: observers}
}

// Add appends another observer.
func (m *MultiObserver) Add(o Observer) { m.observers = append(m.observers, o) }

func (m *MultiObserver) OnStageStart(stage Stage) {
	for _, o := range m.observers {
		o.OnStageStart(stage)
	}
}

func (m *MultiObserver) OnStageComplete(stage Stage) {
	for _, o := range m.observers {
		o.OnStageComplete(stage)
	}
}

func (m *MultiObserver) OnError(stage Stage, err error) {
	for _, o := range m.observers {
		o.OnError(stage, err)
	}
}

// ProgressEvent is the channel form of an observer notification.
type ProgressEvent struct {
	Stage    Stage  `json:"stage"`
	Kind     string `json:"kind"` // "start", "complete", "error"
	ErrorMsg string `json:"error,omitempty"`
}

// ChannelObserver bridges events onto a channel, dropping events when the
// receiver falls behind rather than stalling the pipeline.
type ChannelObserver struct {
	ch chan ProgressEvent
}

// NewChannelObserver creates a channel-backed observer with the given
// buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelObserver{ch: make(chan ProgressEvent, buffer)}
}

// Events returns the receive side of the event stream.
func (c *ChannelObserver) Events() <-chan ProgressEvent { return c.ch }

// Close closes the event stream. The pipeline must not emit after Close.
func (c *ChannelObserver) Close() { close(c.ch) }

func (c *ChannelObserver) send(ev ProgressEvent) {
	select {
	case c.ch <- ev:
	default:
	}
}

func (c *ChannelObserver) OnStageStart(stage Stage) {
	c.send(ProgressEvent{Stage: stage, Kind: "start"})
}

func (c *ChannelObserver) OnStageComplete(stage Stage) {
	c.send(ProgressEvent{Stage: stage, Kind: "complete"})
}

func (c *ChannelObserver) OnError(stage Stage, err error) {
	c.send(ProgressEvent{Stage: stage, Kind: "error", ErrorMsg: err.Error()})
}
