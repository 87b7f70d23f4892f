package worker

import (
	"time"

	"github.com/joeycumines/go-worker/sched"
)

// listenerPriority is the priority whereby the listener is woken up after a
// beep.
//
// The listener itself can schedule jobs with any priority, including high
// priority ones, and after detecting a teardown it acts directly. A lower
// priority would let the listener batch more wishes per wake-up, but it
// would also put every urgent job behind a lazy bottleneck, so urgency
// wins.
const listenerPriority = sched.PriorityUrgent

// armListener registers the listener on the wake channel's read end.
// Worker goroutine only.
func (w *Worker) armListener() {
	w.listenerTask = w.loop.AddSelect(listenerPriority, time.Time{}, w.wakeReadSet, nil, w.listen)
}

// listen is the scheduler-side task woken by the pipe. It drains exactly
// one byte, snapshots the wish list and the worker's destiny, and either
// promotes the wishes into scheduled tasks or performs the teardown the
// destiny calls for.
func (w *Worker) listen() {
	w.wishesMu.Lock()

	lastWish := w.wishlist
	w.wishlist = nil
	plans := w.plans

	if b, ok := readBeep(w.wakeReadFD); !ok || b != beepCode {
		w.logger.Warning().Log("worker: unable to read the notification sent to the worker goroutine")
	}

	w.wishesMu.Unlock()

	switch plans {
	case planShutDown:
		w.listenerTask = nil
		w.killMu.Lock()
		// Snapshotted wishes are dropped without running.
		w.loop.Cancel(w.shutdownTask)
		w.shutdownTask = nil
		w.killCore()
		if w.flags&flagIsGuest != 0 {
			// No launcher will run for this scheduler; dispose here, then
			// bring the host down.
			w.afterKill()
		}
		w.loop.Shutdown()
		return

	case planDismissed:
		w.listenerTask = nil
		w.killMu.Lock()
		w.loop.Cancel(w.shutdownTask)
		w.shutdownTask = nil
		w.killCore()
		w.afterKill()
		return
	}

	if lastWish != nil {
		// The wish list is built head-insert; reverse it so the scheduler
		// sees chronological order.
		var firstWish *job
		iter := lastWish
		for iter != nil {
			firstWish = iter
			next := iter.next
			iter.next = iter.prev
			iter.prev = next
			iter = next
		}

		for iter = firstWish; iter != nil; iter = iter.next {
			iter.scheduledAs = w.loop.AddWithPriority(iter.priority, w.trampoline(iter))
		}

		// The schedules list is not kept in chronological order.
		if w.schedules != nil {
			lastWish.next = w.schedules
			w.schedules.prev = lastWish
		}
		w.schedules = firstWish
	}

	// To the next awakening...
	if w.state.Load() == stateAlive {
		w.armListener()
	} else {
		w.listenerTask = nil
	}
}

// trampoline wraps a scheduled wish: when the scheduler fires it, the node
// unlinks itself from the schedules list and the user routine runs. The
// routine may call any scheduler primitive, including requesting shutdown.
func (w *Worker) trampoline(j *job) func() {
	return func() {
		j.unlink()
		j.routine(j.data)
	}
}

// killCore cancels everything still pending and runs the termination
// callback; the worker is Dead when it returns. Caller must hold killMu;
// worker goroutine only.
func (w *Worker) killCore() {
	w.clearListener()
	w.cancelSchedules()
	w.drainWishlist()
	if w.onTerminate != nil {
		w.onTerminate(w.data)
	}
	w.state.Store(stateDead)
}

// unattendedShutdown is the hook installed at worker startup. It fires when
// shutdown arrives from anywhere other than this library's own destroy
// path: a user routine asking the scheduler to shut down, the scheduler
// running out of tasks, or the host scheduler of an adopted worker going
// down. It records the state transition itself.
func (w *Worker) unattendedShutdown() {
	w.shutdownTask = nil
	w.killMu.Lock()
	if w.onTerminate != nil {
		w.state.Store(stateSayingBye)
	} else {
		w.state.Store(stateDying)
	}
	w.killCore()
	if w.flags&flagIsGuest != 0 {
		w.afterKill()
	}
}

// attendedShutdown is swapped in when a destroy call is made from the
// worker goroutine itself: the caller has already recorded the state
// transition, so only the remaining work needs cancelling.
func (w *Worker) attendedShutdown() {
	w.shutdownTask = nil
	w.killMu.Lock()
	w.killCore()
	if w.flags&flagIsGuest != 0 {
		w.afterKill()
	}
}

// exitInline tears down and disposes without shutting the scheduler down; used
// by a dismissal issued on the worker goroutine.
func (w *Worker) exitInline() {
	w.killMu.Lock()
	w.killCore()
	w.afterKill()
}

func (w *Worker) clearListener() {
	if w.listenerTask != nil {
		t := w.listenerTask
		w.listenerTask = nil
		w.loop.Cancel(t)
	}
}

func (w *Worker) cancelSchedules() {
	for iter := w.schedules; iter != nil; {
		next := iter.next
		if iter.scheduledAs != nil {
			w.loop.Cancel(iter.scheduledAs)
		}
		iter.prev, iter.next = nil, nil
		iter = next
	}
	w.schedules = nil
}

func (w *Worker) drainWishlist() {
	w.wishesMu.Lock()
	w.wishlist = nil
	w.wishesMu.Unlock()
}
