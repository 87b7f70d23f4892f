package sched

import "fmt"

// Priority orders runnable tasks. Higher values run first. The zero value
// is not a valid priority; use PriorityDefault when in doubt.
type Priority int

const (
	// PriorityIdle runs only when nothing else is runnable.
	PriorityIdle Priority = iota + 1
	// PriorityBackground is for deferrable housekeeping.
	PriorityBackground
	// PriorityDefault is the priority assumed by convenience wrappers.
	PriorityDefault
	// PriorityHigh preempts default work at the next yield point.
	PriorityHigh
	// PriorityUI is for latency-sensitive work.
	PriorityUI
	// PriorityUrgent runs before everything short of shutdown.
	PriorityUrgent
	// PriorityShutdown is reserved for the shutdown phase.
	PriorityShutdown
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityIdle && p <= PriorityShutdown
}

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "Idle"
	case PriorityBackground:
		return "Background"
	case PriorityDefault:
		return "Default"
	case PriorityHigh:
		return "High"
	case PriorityUI:
		return "UI"
	case PriorityUrgent:
		return "Urgent"
	case PriorityShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}
