package sched

import (
	"container/heap"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Standard errors.
var (
	// ErrAlreadyRunning is returned when Run is called on a scheduler that is
	// already running.
	ErrAlreadyRunning = errors.New("sched: scheduler is already running")

	// ErrTerminated is returned when Run is called on a scheduler that has
	// already run to completion.
	ErrTerminated = errors.New("sched: scheduler has terminated")
)

// Scheduler is a single-goroutine cooperative task runner. See the package
// documentation for the threading contract. The zero value is not usable;
// call [New].
type Scheduler struct {
	logger *logiface.Logger[logiface.Event]

	ready         taskHeap
	selects       map[*Task]struct{}
	shutdownHooks []*Task

	poller poller
	seq    uint64

	loopGoroutineID atomic.Uint64

	running           bool
	terminated        bool
	shutdownRequested bool
}

// New creates a scheduler ready for a single [Scheduler.Run] cycle.
func New(options ...Option) *Scheduler {
	cfg := resolveOptions(options)
	return &Scheduler{
		logger:  cfg.logger,
		selects: make(map[*Task]struct{}),
	}
}

// Run executes main as the first task and then services the task set until
// shutdown is requested or no task remains, at which point the registered
// shutdown hooks fire and Run returns. It blocks the calling goroutine for
// the scheduler's whole lifetime.
//
// The OS thread is locked while the loop runs: the platform pollers require
// thread affinity.
func (s *Scheduler) Run(main func()) error {
	if s.running {
		return ErrAlreadyRunning
	}
	if s.terminated {
		return ErrTerminated
	}
	if err := s.poller.init(); err != nil {
		return err
	}
	s.running = true

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.loopGoroutineID.Store(getGoroutineID())
	defer s.loopGoroutineID.Store(0)

	if main != nil {
		s.AddWithPriority(PriorityDefault, main)
	}

	for {
		s.runReady()
		if s.shutdownRequested {
			break
		}
		if len(s.ready) == 0 && len(s.selects) == 0 {
			// Out of work: same exit as an explicit shutdown request.
			break
		}
		s.pollOnce()
	}

	s.runShutdownHooks()
	_ = s.poller.close()
	s.running = false
	s.terminated = true
	return nil
}

// AddWithPriority registers fn to run once at the given priority.
func (s *Scheduler) AddWithPriority(priority Priority, fn func()) *Task {
	if !priority.Valid() {
		priority = PriorityDefault
	}
	t := &Task{
		fn:       fn,
		kind:     taskReady,
		priority: priority,
		seq:      s.nextSeq(),
	}
	heap.Push(&s.ready, t)
	return t
}

// AddSelect registers fn to run once when any descriptor in read becomes
// readable or any descriptor in write becomes writable, or when the deadline
// passes (a zero deadline never passes). The task runs at the given priority
// relative to other runnable tasks. Returns nil if a descriptor could not be
// registered, in which case nothing was armed.
func (s *Scheduler) AddSelect(priority Priority, deadline time.Time, read, write *FDSet, fn func()) *Task {
	if !priority.Valid() {
		priority = PriorityDefault
	}
	t := &Task{
		fn:       fn,
		kind:     taskSelect,
		priority: priority,
		deadline: deadline,
		readFDs:  read.list(),
		writeFDs: write.list(),
	}
	var registered []int
	fail := func(fd int, err error) *Task {
		for _, r := range registered {
			_ = s.poller.unregister(r)
		}
		s.logger.Err().Err(err).Int("fd", fd).Log("sched: cannot watch descriptor")
		return nil
	}
	for _, fd := range t.readFDs {
		if err := s.poller.register(fd, eventRead|eventHangup, func(ioEvents) { s.promoteSelect(t) }); err != nil {
			return fail(fd, err)
		}
		registered = append(registered, fd)
	}
	for _, fd := range t.writeFDs {
		if err := s.poller.register(fd, eventWrite, func(ioEvents) { s.promoteSelect(t) }); err != nil {
			return fail(fd, err)
		}
		registered = append(registered, fd)
	}
	s.selects[t] = struct{}{}
	return t
}

// AddShutdown registers fn to run during the shutdown phase, after the main
// loop has exited. Hooks fire in registration order unless cancelled.
func (s *Scheduler) AddShutdown(fn func()) *Task {
	t := &Task{
		fn:       fn,
		kind:     taskShutdown,
		priority: PriorityShutdown,
		seq:      s.nextSeq(),
	}
	s.shutdownHooks = append(s.shutdownHooks, t)
	return t
}

// Cancel prevents a registered task from firing. Cancelling a task that has
// already run or been cancelled is a no-op.
func (s *Scheduler) Cancel(t *Task) {
	if t == nil || t.done || t.canceled {
		return
	}
	t.canceled = true
	if t.kind == taskSelect {
		if _, ok := s.selects[t]; ok {
			delete(s.selects, t)
			s.dropSelectFDs(t)
		}
	}
}

// Shutdown requests that the scheduler stop. It is legal only from the loop
// goroutine; the loop exits at the next yield point and runs the shutdown
// hooks before Run returns.
func (s *Scheduler) Shutdown() {
	s.shutdownRequested = true
}

// OnLoopGoroutine reports whether the caller is the goroutine currently
// inside Run.
func (s *Scheduler) OnLoopGoroutine() bool {
	id := s.loopGoroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Scheduler) runReady() {
	for len(s.ready) > 0 && !s.shutdownRequested {
		t := heap.Pop(&s.ready).(*Task)
		if t.canceled {
			continue
		}
		t.done = true
		s.safeExecute(t.fn)
	}
}

func (s *Scheduler) pollOnce() {
	timeout := s.selectTimeout()
	if _, err := s.poller.poll(timeout); err != nil {
		s.logger.Err().Err(err).Log("sched: readiness poll failed, shutting down")
		s.shutdownRequested = true
		return
	}
	s.fireExpiredSelects()
}

// selectTimeout computes the poll timeout in milliseconds: -1 (block) unless
// a select task carries a deadline, in which case the nearest one wins.
func (s *Scheduler) selectTimeout() int {
	timeout := -1
	var now time.Time
	for t := range s.selects {
		if t.deadline.IsZero() {
			continue
		}
		if now.IsZero() {
			now = time.Now()
		}
		delay := t.deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
		ms := int(delay.Milliseconds())
		if delay > 0 && delay < time.Millisecond {
			ms = 1
		}
		if timeout < 0 || ms < timeout {
			timeout = ms
		}
	}
	return timeout
}

func (s *Scheduler) fireExpiredSelects() {
	var now time.Time
	for t := range s.selects {
		if t.deadline.IsZero() {
			continue
		}
		if now.IsZero() {
			now = time.Now()
		}
		if !t.deadline.After(now) {
			s.promoteSelect(t)
		}
	}
}

// promoteSelect moves a select task into the ready queue. Called inline from
// poller dispatch and from deadline expiry; both run on the loop goroutine.
func (s *Scheduler) promoteSelect(t *Task) {
	if t.canceled || t.done {
		return
	}
	if _, ok := s.selects[t]; !ok {
		// Already promoted this poll cycle (two fds ready at once).
		return
	}
	delete(s.selects, t)
	s.dropSelectFDs(t)
	t.seq = s.nextSeq()
	heap.Push(&s.ready, t)
}

func (s *Scheduler) dropSelectFDs(t *Task) {
	for _, fd := range t.readFDs {
		_ = s.poller.unregister(fd)
	}
	for _, fd := range t.writeFDs {
		_ = s.poller.unregister(fd)
	}
}

func (s *Scheduler) runShutdownHooks() {
	// Index loop: a hook may register further hooks.
	for i := 0; i < len(s.shutdownHooks); i++ {
		t := s.shutdownHooks[i]
		if t.canceled || t.done {
			continue
		}
		t.done = true
		s.safeExecute(t.fn)
	}
	s.shutdownHooks = nil
}

func (s *Scheduler) safeExecute(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Err().Any("panic", r).Log("sched: task panicked")
		}
	}()
	fn()
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
