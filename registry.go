package worker

import (
	"runtime"
	"sync"
)

// servingRegistry maps goroutine ids to the worker they are serving as. It
// stands in for a per-thread slot: the scheduler launcher registers the
// worker just before entering the scheduler and the disposal path removes
// it. Master goroutines and submitters are never registered.
var servingRegistry struct {
	sync.RWMutex
	m map[uint64]*Worker
}

func init() {
	servingRegistry.m = make(map[uint64]*Worker)
}

func setServing(w *Worker) {
	id := getGoroutineID()
	servingRegistry.Lock()
	servingRegistry.m[id] = w
	servingRegistry.Unlock()
}

func clearServing() {
	id := getGoroutineID()
	servingRegistry.Lock()
	delete(servingRegistry.m, id)
	servingRegistry.Unlock()
}

func currentServing() *Worker {
	id := getGoroutineID()
	servingRegistry.RLock()
	w := servingRegistry.m[id]
	servingRegistry.RUnlock()
	return w
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
