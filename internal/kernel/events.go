package kernel

// Event is a point-in-time scheduler transition, published to an EventSink
// for observability. Events are fire-and-forget telemetry — nothing in the
// scheduler core reads them back, keeping §6's "Persisted state: none in
// the scheduler core" intact.
type Event struct {
	Kind     string // "enqueue", "demote", "boost", "exit", "kill", "sleep", "wake"
	Pid      int64
	Priority int
	Tick     int64
}

// EventSink receives scheduler events. Implementations must not block the
// caller for long — Publish is invoked synchronously from lifecycle and
// clock paths, in one of them (Exit → reparent → Wakeup) with the kernel's
// wait lock still held, so a slow sink would become a priority inversion
// of its own.
type EventSink interface {
	Publish(Event)
}

// noopSink discards every event; the default when no sink is configured.
type noopSink struct{}

func (noopSink) Publish(Event) {}
