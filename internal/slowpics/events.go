package slowpics

// EventType tags the progress/terminal signals a worker operation
// delivers back to its owner.
type EventType int

const (
	// EventStep reports step progress: Step plus Current/Total.
	EventStep EventType = iota
	// EventPercent reports overall percent across extract+upload units.
	EventPercent
	// EventURL carries the final comparison URL on success.
	EventURL
	// EventError carries a terminal error.
	EventError
	// EventFinished is the terminal signal, emitted exactly once per
	// operation, after EventURL or EventError.
	EventFinished
)

// Event is one signal from a worker operation. ID is the operation's
// correlation id; consumers discard events whose ID does not match the
// operation they are tracking.
type Event struct {
	ID      string
	Type    EventType
	Step    string
	Current int
	Total   int
	Percent int
	URL     string
	Err     error
}

// EmitFunc receives events. Operations call it from their own
// goroutine; the owner is responsible for marshalling onto its thread.
type EmitFunc func(Event)

// emitter adds the bookkeeping shared by operations: percent scaling
// and the emit-finished-once guard.
type emitter struct {
	id       string
	emit     EmitFunc
	finished bool
}

func newEmitter(id string, emit EmitFunc) *emitter {
	if emit == nil {
		emit = func(Event) {}
	}
	return &emitter{id: id, emit: emit}
}

func (e *emitter) step(step string, current, total int) {
	e.emit(Event{ID: e.id, Type: EventStep, Step: step, Current: current, Total: total})
}

func (e *emitter) percent(value, endValue int) {
	p := 0
	if endValue > 0 {
		p = 100 * value / endValue
	}
	e.emit(Event{ID: e.id, Type: EventPercent, Percent: p})
}

func (e *emitter) url(url string) {
	e.emit(Event{ID: e.id, Type: EventURL, URL: url})
}

func (e *emitter) error(err error) {
	e.emit(Event{ID: e.id, Type: EventError, Err: err})
}

func (e *emitter) finish() {
	if e.finished {
		return
	}
	e.finished = true
	e.emit(Event{ID: e.id, Type: EventFinished})
}
