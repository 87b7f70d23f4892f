package worker

import "time"

// DestroyAsync marks the worker for shutdown, beeps the wake channel, and
// returns without waiting for the scheduler to complete. If called from the
// worker goroutine, it swaps the shutdown hook to the attended variant and
// requests scheduler shutdown directly.
func (w *Worker) DestroyAsync() error {
	switch w.state.Load() {
	case stateZombie:
		return w.retryZombie()
	case stateSayingBye:
		// It was still safe to call this: someone else is already at work.
		return nil
	case stateAlive:
		if currentServing() != w && !w.killMu.TryLock() {
			return w.contendedDestroy(false)
		}
	default:
		w.logger.Err().Log("worker: double free detected")
		return ErrDoubleFree
	}

	w.recordFarewell()

	if currentServing() == w {
		w.selfShutdown()
		return nil
	}

	w.workerDisposable.Hold()
	err := w.signalDestiny(planShutDown)
	w.killMu.Unlock()
	w.workerDisposable.Release()
	return err
}

// DestroySync is DestroyAsync plus a wait: the caller blocks until the
// worker goroutine has exited (owned) or until the teardown path has
// released the worker (not owned: after the scheduler has returned for a
// StartServing worker, before the host scheduler returns for an adopted
// one). Success implies the worker is Dead. When called from the worker
// goroutine it degrades to DestroyAsync.
func (w *Worker) DestroySync() error {
	return w.destroyWait(time.Time{})
}

// DestroyTimed is DestroySync with an absolute deadline. On expiry it
// returns ErrExpired and the teardown continues asynchronously; the worker
// is still disposed of, just not before this call returns.
func (w *Worker) DestroyTimed(deadline time.Time) error {
	if deadline.IsZero() {
		return ErrInvalidTime
	}
	return w.destroyWait(deadline)
}

func (w *Worker) destroyWait(deadline time.Time) error {
	switch w.state.Load() {
	case stateZombie:
		if err := w.retryZombie(); err != nil {
			return err
		}
		return w.awaitTeardown(deadline)
	case stateSayingBye:
		return ErrNotAlone
	case stateAlive:
		if currentServing() != w && !w.killMu.TryLock() {
			return w.contendedDestroy(true)
		}
	default:
		w.logger.Err().Log("worker: double free detected")
		return ErrDoubleFree
	}

	w.recordFarewell()

	if currentServing() == w {
		w.selfShutdown()
		return nil
	}

	w.workerDisposable.Hold()
	if err := w.signalDestiny(planShutDown); err != nil {
		w.workerDisposable.Release()
		w.killMu.Unlock()
		return err
	}
	w.killMu.Unlock()
	return w.awaitTeardownHeld(deadline)
}

// Dismiss uninstalls the listener and shutdown hook, cancels all pending
// and scheduled wishes, runs the termination callback, and disposes of the
// worker, leaving the scheduler running. Typically paired with
// [AdoptRunning].
func (w *Worker) Dismiss() error {
	switch w.state.Load() {
	case stateZombie:
		return w.retryZombie()
	case stateSayingBye:
		return nil
	case stateAlive:
		if currentServing() != w && !w.killMu.TryLock() {
			return w.contendedDestroy(false)
		}
	default:
		w.logger.Err().Log("worker: double free detected")
		return ErrDoubleFree
	}

	w.recordFarewell()

	if currentServing() == w {
		if w.shutdownTask != nil {
			t := w.shutdownTask
			w.shutdownTask = nil
			w.loop.Cancel(t)
		}
		w.exitInline()
		return nil
	}

	w.workerDisposable.Hold()
	err := w.signalDestiny(planDismissed)
	w.killMu.Unlock()
	w.workerDisposable.Release()
	return err
}

// recordFarewell stores the first teardown state: SayingBye when a
// termination callback will run, Dying otherwise.
func (w *Worker) recordFarewell() {
	if w.onTerminate != nil {
		w.state.Store(stateSayingBye)
	} else {
		w.state.Store(stateDying)
	}
}

// contendedDestroy resolves a failed killMu trylock on a live worker:
// with a termination callback registered the loser is witnessing a
// legitimate teardown (SayingBye is imminent or current); without one,
// two destroyers on the same worker is a double free.
func (w *Worker) contendedDestroy(synchronous bool) error {
	if w.onTerminate != nil {
		if synchronous {
			return ErrNotAlone
		}
		return nil
	}
	w.logger.Err().Log("worker: double free detected")
	return ErrDoubleFree
}

// signalDestiny records the destiny and beeps the wake channel if nothing
// has beeped already. Caller holds killMu. A failed beep moves the worker
// to Zombie: recoverable via Ping or a later destroy.
func (w *Worker) signalDestiny(destiny futurePlans) error {
	w.wishesMu.Lock()
	defer w.wishesMu.Unlock()
	w.plans = destiny
	if w.wishlist == nil && !writeBeep(w.wakeWriteFD) {
		// This will probably never happen, pipes don't break...
		w.state.Store(stateZombie)
		return ErrSignal
	}
	return nil
}

// retryZombie attempts to revive a stalled teardown with one more beep.
func (w *Worker) retryZombie() error {
	if !writeBeep(w.wakeWriteFD) {
		return ErrSignal
	}
	w.state.Store(stateDying)
	return nil
}

// awaitTeardownHeld waits for teardown completion; the caller has the
// disposability gate held red and this releases it.
func (w *Worker) awaitTeardownHeld(deadline time.Time) error {
	if w.flags&flagOwnsThread != 0 {
		// We started the scheduler's goroutine: wait for it to exit.
		done := w.threadDone
		w.workerDisposable.Release()
		if deadline.IsZero() {
			<-done
			return nil
		}
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		select {
		case <-done:
			return nil
		case <-timer.C:
			return ErrExpired
		}
	}

	// We did not start the scheduler's goroutine: it must live; wait for
	// the shutdown path to release us instead.
	var err error
	if deadline.IsZero() {
		err = w.schedulerReturned.Await()
	} else {
		err = w.schedulerReturned.AwaitUntil(deadline)
	}
	w.workerDisposable.Release()
	return err
}

func (w *Worker) awaitTeardown(deadline time.Time) error {
	w.workerDisposable.Hold()
	return w.awaitTeardownHeld(deadline)
}

// selfShutdown handles a destroy issued on the worker goroutine: the
// shutdown hook is swapped to the attended variant and the scheduler is
// brought down directly.
func (w *Worker) selfShutdown() {
	if w.shutdownTask != nil {
		w.loop.Cancel(w.shutdownTask)
	}
	w.shutdownTask = w.loop.AddShutdown(w.attendedShutdown)
	w.loop.Shutdown()
}
