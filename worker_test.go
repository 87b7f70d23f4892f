package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-worker/sched"
	"github.com/stretchr/testify/require"
)

// waitClosed fails the test if ch does not close within the timeout.
func waitClosed(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal(msg)
	}
}

func TestSubmitThenDestroy(t *testing.T) {
	var mu sync.Mutex
	var got []string

	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	err = w.PushLoad(func(data any) {
		mu.Lock()
		got = append(got, data.(string))
		mu.Unlock()
	}, "hello")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.DestroySync())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"hello"}, got)
}

func TestDestroyBeforeListenerDrains(t *testing.T) {
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.DestroyAsync())

	var ran atomic.Int32
	err = w.PushLoad(func(any) { ran.Add(1) }, nil)
	if err != nil {
		require.ErrorIs(t, err, ErrInvalidHandle)
	}

	waitClosed(t, w.threadDone, "worker goroutine never exited")
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, ran.Load(), "a routine ran after an immediate destroy")
	require.Equal(t, stateDead, w.state.Load())
}

func TestSelfDestroyFromJob(t *testing.T) {
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	var ran atomic.Int32
	errCh := make(chan error, 1)
	require.NoError(t, w.PushLoad(func(any) {
		ran.Add(1)
		errCh <- w.DestroyAsync()
	}, nil))

	waitClosed(t, w.threadDone, "scheduler did not return after self-destroy")
	require.NoError(t, <-errCh)
	require.Equal(t, int32(1), ran.Load())
	require.ErrorIs(t, w.PushLoad(func(any) {}, nil), ErrInvalidHandle)
}

func TestSubmissionOrderIsChronological(t *testing.T) {
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	const n = 10
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		require.NoError(t, w.PushLoad(func(data any) { results <- data.(int) }, i))
	}

	var got []int
	for i := 0; i < n; i++ {
		select {
		case v := <-results:
			got = append(got, v)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d routines ran", i, n)
		}
	}
	require.NoError(t, w.DestroySync())

	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestPushFromWorkerGoroutine(t *testing.T) {
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	inner := make(chan any, 1)
	require.NoError(t, w.PushLoad(func(any) {
		errCh <- w.PushLoadWithPriority(sched.PriorityHigh, func(data any) {
			inner <- data
		}, "inner")
	}, nil))

	require.NoError(t, <-errCh)
	select {
	case data := <-inner:
		require.Equal(t, "inner", data)
	case <-time.After(5 * time.Second):
		t.Fatal("worker-goroutine push never ran")
	}
	require.NoError(t, w.DestroySync())
}

func TestCurrentAndData(t *testing.T) {
	require.Nil(t, Current())

	w, err := Create(nil, nil, "datum")
	require.NoError(t, err)
	require.Equal(t, "datum", w.Data())

	cur := make(chan *Worker, 1)
	require.NoError(t, w.PushLoad(func(any) { cur <- Current() }, nil))
	select {
	case got := <-cur:
		require.Same(t, w, got)
	case <-time.After(5 * time.Second):
		t.Fatal("routine never ran")
	}
	require.NoError(t, w.DestroySync())
	require.Nil(t, Current())
}

func TestPushLoadDuringFarewellIsANoOp(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	w, err := Create(nil, func(any) {
		close(entered)
		<-block
	}, nil)
	require.NoError(t, err)

	res := make(chan error, 1)
	go func() { res <- w.DestroySync() }()
	waitClosed(t, entered, "termination callback never started")

	var ran atomic.Int32
	require.NoError(t, w.PushLoad(func(any) { ran.Add(1) }, nil))

	close(block)
	require.NoError(t, <-res)
	require.Zero(t, ran.Load())
}

func TestBrokenWakeChannel(t *testing.T) {
	w, err := Create(nil, nil, nil)
	require.NoError(t, err)

	// Break the wake channel out from under the worker.
	closeFD(w.wakeWriteFD)
	w.wakeWriteFD = -1

	require.ErrorIs(t, w.PushLoad(func(any) {}, nil), ErrSignal)
	require.False(t, w.Ping())

	err = w.DestroyAsync()
	require.ErrorIs(t, err, ErrSignal)

	// The poller reports the hangup, so the listener still observes the
	// recorded destiny and the teardown completes on its own.
	waitClosed(t, w.threadDone, "zombie worker never died")
	require.Equal(t, stateDead, w.state.Load())
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeOK, CodeOf(nil))
	require.Equal(t, CodeDoubleFree, CodeOf(ErrDoubleFree))
	require.Equal(t, CodeInvalidHandle, CodeOf(ErrInvalidHandle))
	require.Equal(t, CodeAlreadyServing, CodeOf(ErrAlreadyServing))
	require.Equal(t, CodeInvalidTime, CodeOf(ErrInvalidTime))
	require.Equal(t, CodeExpired, CodeOf(ErrExpired))
	require.Equal(t, CodeNotAlone, CodeOf(ErrNotAlone))
	require.Equal(t, CodeSignal, CodeOf(ErrSignal))
	require.Equal(t, CodeInternalBug, CodeOf(ErrInternalBug))
}

func TestWorkerStateString(t *testing.T) {
	states := []workerState{stateAlive, stateSayingBye, stateDying, stateZombie, stateDead}
	seen := map[string]bool{}
	for _, s := range states {
		str := s.String()
		if str == "" || str == "Unknown" || seen[str] {
			t.Fatalf("bad or duplicate name for state %d: %q", s, str)
		}
		seen[str] = true
	}
}
