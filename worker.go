package worker

import (
	"sync"
	"time"

	"github.com/joeycumines/go-worker/sched"
	"github.com/joeycumines/logiface"
)

// Routine is a callback run inside the worker goroutine with the datum its
// submitter supplied.
type Routine func(data any)

// ConfirmRoutine is the startup callback: returning false aborts the worker
// before the load listener is installed.
type ConfirmRoutine func(data any) bool

// MasterRoutine is an optional driver routine spawned in its own detached
// goroutine at construction, typically used to feed the worker from
// outside. It never runs on the worker goroutine.
type MasterRoutine func(w *Worker, data any)

// Scheduler is the cooperative scheduler contract the worker binds to.
// *sched.Scheduler satisfies it. All methods other than Run are legal only
// from the scheduler's loop goroutine.
type Scheduler interface {
	Run(main func()) error
	AddWithPriority(priority sched.Priority, fn func()) *sched.Task
	AddSelect(priority sched.Priority, deadline time.Time, read, write *sched.FDSet, fn func()) *sched.Task
	AddShutdown(fn func()) *sched.Task
	Cancel(t *sched.Task)
	Shutdown()
}

type workerFlags uint8

const (
	// flagOwnsThread marks workers whose scheduler goroutine this library
	// started (and must therefore wait on, or not, at teardown).
	flagOwnsThread workerFlags = 1 << iota
	// flagIsGuest marks workers installed into a scheduler this library did
	// not start; they dispose of themselves, there being no launcher to do
	// it for them.
	flagIsGuest
)

type futurePlans uint8

const (
	planContinue futurePlans = iota
	planShutDown
	planDismissed
)

// Worker binds one cooperative scheduler to a many-producers submission
// channel. Any goroutine may push callbacks through it; they execute inside
// the scheduler goroutine at the priority of the caller's choosing.
type Worker struct {
	// Immutable after construction.
	master      MasterRoutine
	onStart     ConfirmRoutine
	onTerminate Routine
	data        any
	flags       workerFlags
	logger      *logiface.Logger[logiface.Event]
	loop        Scheduler
	wakeReadFD  int
	wakeWriteFD int
	wakeReadSet *sched.FDSet

	// Mutated only on the worker goroutine.
	schedules    *job
	listenerTask *sched.Task
	shutdownTask *sched.Task

	// Shared across goroutines.
	state             stateAtom
	wishesMu          sync.Mutex
	wishlist          *job
	plans             futurePlans
	killMu            sync.Mutex
	schedulerReturned *requirement
	workerDisposable  *requirement

	// threadDone is closed when an owned scheduler goroutine exits; nil for
	// workers that do not own their goroutine.
	threadDone chan struct{}
}

func newWorker(loop Scheduler, master MasterRoutine, onStart ConfirmRoutine, onTerminate Routine, data any, flags workerFlags, cfg *workerOptions) (*Worker, error) {
	readFD, writeFD, err := newWakePipe()
	if err != nil {
		return nil, ErrSignal
	}
	return &Worker{
		master:            master,
		onStart:           onStart,
		onTerminate:       onTerminate,
		data:              data,
		flags:             flags,
		logger:            cfg.logger,
		loop:              loop,
		wakeReadFD:        readFD,
		wakeWriteFD:       writeFD,
		wakeReadSet:       sched.NewFDSet(readFD),
		schedulerReturned: newRequirement(reqInitRed),
		workerDisposable:  newRequirement(reqInitGreen),
	}, nil
}

// Create starts a new scheduler in its own goroutine and returns a worker
// bound to it. The worker is returned before the scheduler has finished
// starting; callers may begin pushing loads immediately.
//
// onStart, if non-nil, runs on the worker goroutine before the load
// listener is installed; returning false aborts startup (onTerminate still
// runs). onTerminate, if non-nil, runs on the worker goroutine during
// teardown, after pending work has been cancelled, and is the library's
// last contact with the caller for this worker.
func Create(onStart ConfirmRoutine, onTerminate Routine, data any, options ...Option) (*Worker, error) {
	cfg := resolveOptions(options)
	loop := sched.New(sched.WithLogger(cfg.logger))
	w, err := newWorker(loop, nil, onStart, onTerminate, data, flagOwnsThread, cfg)
	if err != nil {
		return nil, err
	}
	w.threadDone = make(chan struct{})
	go w.serve()
	return w, nil
}

// StartServing turns the calling goroutine into a worker: it installs the
// worker, optionally spawns the master goroutine with a handle to it, and
// runs the scheduler in place. It returns only after the scheduler has
// returned. The handle is observable from the master routine and, on the
// worker goroutine (onStart included), via [Current]; onStart's argument is
// the data supplied here.
func StartServing(master MasterRoutine, onStart ConfirmRoutine, onTerminate Routine, data any, options ...Option) error {
	if currentServing() != nil {
		return ErrAlreadyServing
	}
	cfg := resolveOptions(options)
	loop := sched.New(sched.WithLogger(cfg.logger))
	w, err := newWorker(loop, master, onStart, onTerminate, data, 0, cfg)
	if err != nil {
		return err
	}
	if master != nil {
		go w.masterRoutine()
	}
	setServing(w)
	_ = loop.Run(w.mainTask)
	return w.afterRun()
}

// AdoptRunning installs a worker into an already running scheduler, which
// must be the one hosting the calling goroutine. The scheduler is left
// as-is, but is now load-bearing for this library: destroying the worker
// shuts it down, while [Worker.Dismiss] removes the worker and leaves the
// scheduler running.
func AdoptRunning(loop Scheduler, master MasterRoutine, onTerminate Routine, data any, options ...Option) (*Worker, error) {
	if currentServing() != nil {
		return nil, ErrAlreadyServing
	}
	cfg := resolveOptions(options)
	w, err := newWorker(loop, master, nil, onTerminate, data, flagIsGuest, cfg)
	if err != nil {
		return nil, err
	}
	if master != nil {
		go w.masterRoutine()
	}
	setServing(w)
	w.shutdownTask = loop.AddShutdown(w.unattendedShutdown)
	w.armListener()
	return w, nil
}

// Current returns the worker the calling goroutine is serving as, or nil if
// the caller is not a worker goroutine.
func Current() *Worker {
	return currentServing()
}

// Data returns the datum supplied at construction, verbatim.
func (w *Worker) Data() any {
	return w.data
}

// serve hosts the scheduler for workers whose goroutine this library
// started.
func (w *Worker) serve() {
	defer close(w.threadDone)
	setServing(w)
	_ = w.loop.Run(w.mainTask)
	_ = w.afterRun()
}

// afterRun completes the launcher's side of teardown once the scheduler has
// returned.
func (w *Worker) afterRun() error {
	if currentServing() == nil {
		// Dismissed: disposal already ran inside the scheduler.
		return nil
	}
	if w.state.Load() != stateDead {
		w.logger.Err().Log("worker: the scheduler has returned unexpectedly")
		return ErrInternalBug
	}
	w.afterKill()
	return nil
}

// mainTask is the scheduler's first task: it installs the shutdown hook,
// consults onStart, and arms the load listener.
func (w *Worker) mainTask() {
	w.shutdownTask = w.loop.AddShutdown(w.unattendedShutdown)
	if w.onStart != nil && !w.onStart(w.data) {
		// Startup refused: with no listener installed the scheduler runs out
		// of tasks and terminates through the shutdown hook.
		return
	}
	w.armListener()
}

func (w *Worker) masterRoutine() {
	w.master(w, w.data)
}

// afterKill completes a teardown whose kill duties already ran: it releases
// the synchronous destroyers, waits until no outside goroutine is touching
// the worker, and frees the wake channel. killMu is held by the teardown
// path and released here. Worker goroutine only.
func (w *Worker) afterKill() {
	w.schedulerReturned.Release()
	_ = w.workerDisposable.Await()
	clearServing()
	w.killMu.Unlock()
	w.free()
}

func (w *Worker) free() {
	closeFD(w.wakeReadFD)
	closeFD(w.wakeWriteFD)
}
