package voice

import (
	"fmt"
	"io"
	"time"
)

// TurnEvent records metadata about one completed voice turn.
type TurnEvent struct {
	SessionID string
	Tool      string
	Outcome   string
	Executed  bool
	LatencyMs int64
}

// Observer receives turn events for logging and metrics.
type Observer interface {
	OnTurnComplete(event TurnEvent)
}

// LogObserver writes turn events to an io.Writer.
type LogObserver struct {
	w io.Writer
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{w: w}
}

func (o *LogObserver) OnTurnComplete(event TurnEvent) {
	ts := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(o.w, "[%s] voice_turn session=%s tool=%s outcome=%s executed=%t latency_ms=%d\n",
		ts, event.SessionID, event.Tool, event.Outcome, event.Executed, event.LatencyMs)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnTurnComplete(TurnEvent) {}
