package geofence

// Containment is the persisted inside/outside state for a region. It reflects
// the most recently processed sample, not necessarily the most recent one the
// device ever produced: cycles skipped by the policy gate leave it untouched.
type Containment int

const (
	ContainmentUnknown Containment = iota
	ContainmentOutside
	ContainmentInside
)

// Event is the result of diffing the current containment decision against the
// persisted one.
type Event string

const (
	EventNone  Event = "none"
	EventEnter Event = "enter"
	EventExit  Event = "exit"
)

// Detect compares the current containment result with the last persisted
// state. The first observation ever initializes state without emitting an
// event, so a cold start inside the region never produces a retroactive
// clock-in. That is a product decision, not an oversight: a phone restarted
// at an arbitrary location must not punch its owner in.
func Detect(last Containment, insideNow bool) Event {
	switch {
	case last == ContainmentUnknown:
		return EventNone
	case last == ContainmentOutside && insideNow:
		return EventEnter
	case last == ContainmentInside && !insideNow:
		return EventExit
	default:
		return EventNone
	}
}
