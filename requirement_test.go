package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequirement_InitGreenDoesNotBlock(t *testing.T) {
	r := newRequirement(reqInitGreen)
	done := make(chan struct{})
	go func() {
		_ = r.Await()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Await blocked on a green requirement")
	}
}

func TestRequirement_InitRedBlocksUntilRelease(t *testing.T) {
	r := newRequirement(reqInitRed)
	done := make(chan struct{})
	go func() {
		_ = r.Await()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Await returned on a red requirement")
	case <-time.After(50 * time.Millisecond):
	}

	r.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Await did not return after Release")
	}
}

func TestRequirement_CountedHolds(t *testing.T) {
	r := newRequirement(reqInitGreen)
	r.Hold()
	r.Hold()
	r.Release()

	done := make(chan struct{})
	go func() {
		_ = r.Await()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Await returned with one hold outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	r.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Await did not return at zero holds")
	}
}

func TestRequirement_ReleaseBelowZeroIsClamped(t *testing.T) {
	r := newRequirement(reqInitGreen)
	r.Release()
	r.Release()
	r.Hold()

	// A single release must flip it back green regardless of the earlier
	// no-op releases.
	done := make(chan struct{})
	go func() {
		_ = r.Await()
		close(done)
	}()
	r.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unfulfillment went negative")
	}
}

func TestRequirement_AwaitUntilExpires(t *testing.T) {
	r := newRequirement(reqInitRed)
	err := r.AwaitUntil(time.Now().Add(50 * time.Millisecond))
	require.ErrorIs(t, err, ErrExpired)
}

func TestRequirement_AwaitUntilSucceeds(t *testing.T) {
	r := newRequirement(reqInitRed)
	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Release()
	}()
	err := r.AwaitUntil(time.Now().Add(2 * time.Second))
	require.NoError(t, err)
}

func TestRequirement_ConcurrentHoldRelease(t *testing.T) {
	r := newRequirement(reqInitGreen)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Hold()
				r.Release()
			}
		}()
	}
	wg.Wait()
	if err := r.AwaitUntil(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("requirement stuck red after balanced holds: %v", err)
	}
}
