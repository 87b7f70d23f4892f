package worker

import "github.com/joeycumines/go-worker/sched"

// PushLoad enqueues routine to run on the worker goroutine at the default
// priority. See PushLoadWithPriority.
func (w *Worker) PushLoad(routine Routine, data any) error {
	return w.PushLoadWithPriority(sched.PriorityDefault, routine, data)
}

// PushLoadWithPriority enqueues routine to run on the worker goroutine at
// the given priority. Safe to call from any goroutine; loads submitted from
// a single goroutine reach the scheduler in submission order.
//
// When the worker is already saying its goodbyes the call reports success
// without scheduling anything: it appears as if the job was scheduled and
// then immediately cancelled by the teardown, although none of it really
// took place.
func (w *Worker) PushLoadWithPriority(priority sched.Priority, routine Routine, data any) error {
	switch w.state.Load() {
	case stateAlive:
	case stateSayingBye:
		return nil
	case stateZombie:
		return ErrSignal
	default:
		w.logger.Err().Log("worker: detected attempt to push load into a destroyed worker")
		return ErrInvalidHandle
	}

	w.workerDisposable.Hold()
	defer w.workerDisposable.Release()

	if currentServing() == w {
		// Already on the worker goroutine: hand the job to the scheduler
		// directly and link it for teardown bookkeeping.
		j := &job{owner: w, routine: routine, data: data, priority: priority}
		j.scheduledAs = w.loop.AddWithPriority(priority, w.trampoline(j))
		j.next = w.schedules
		if w.schedules != nil {
			w.schedules.prev = j
		}
		w.schedules = j
		return nil
	}

	j := &job{owner: w, routine: routine, data: data, priority: priority}

	w.wishesMu.Lock()
	defer w.wishesMu.Unlock()

	j.next = w.wishlist
	if w.wishlist != nil {
		w.wishlist.prev = j
		w.wishlist = j
		return nil
	}
	w.wishlist = j

	if !writeBeep(w.wakeWriteFD) {
		// Without a beep the list stays empty.
		w.wishlist = nil
		return ErrSignal
	}
	return nil
}

// Ping writes one byte to the wake channel, reporting whether the signal
// went through. On the worker goroutine a failed write falls back to
// re-firing the listener synchronously. Intended as a recovery primitive
// after ErrSignal.
func (w *Worker) Ping() bool {
	if currentServing() == w {
		if writeBeep(w.wakeWriteFD) {
			return true
		}
		w.clearListener()
		w.listen()
		return true
	}
	return writeBeep(w.wakeWriteFD)
}
