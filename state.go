package worker

import "sync/atomic"

// workerState tracks where a worker is in its lifetime.
//
// State Machine:
//
//	stateAlive → stateSayingBye → stateDead      [termination callback registered]
//	stateAlive → stateDying → stateDead          [no termination callback]
//	stateAlive → stateZombie                     [wake channel broke]
//	stateZombie → stateDying                     [a later beep succeeded]
//
// stateSayingBye appears only when a termination callback is registered; it
// covers the window in which that callback may run, so outside observers can
// distinguish "being destroyed right now" from "already destroyed".
// stateDead is terminal. stateZombie is the one recoverable off-path state.
type workerState uint32

const (
	stateAlive workerState = iota
	stateSayingBye
	stateDying
	stateZombie
	stateDead
)

// String returns a human-readable representation of the state.
func (s workerState) String() string {
	switch s {
	case stateAlive:
		return "Alive"
	case stateSayingBye:
		return "SayingBye"
	case stateDying:
		return "Dying"
	case stateZombie:
		return "Zombie"
	case stateDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// stateAtom is the shared state cell. Writers are serialized by the kill
// mutex (outside goroutines) or by running on the worker goroutine; readers
// are unrestricted.
type stateAtom struct {
	v atomic.Uint32
}

func (s *stateAtom) Load() workerState {
	return workerState(s.v.Load())
}

func (s *stateAtom) Store(state workerState) {
	s.v.Store(uint32(state))
}
