package progress

import "context"

// Sink consumes batches of events. Implementations must honor ctx deadlines
// and tolerate repeated calls; they may be invoked from the hub goroutine
// only, so they need not be safe for concurrent use.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// scheduler stays agnostic about buffering and fan-out.
type Emitter interface {
	Emit(evt Event)
}

// Nop is an Emitter that discards everything, for tests and one-shot runs.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(Event) {}
