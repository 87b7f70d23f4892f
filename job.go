package worker

import "github.com/joeycumines/go-worker/sched"

// job is one pending or scheduled callback. A node lives on exactly one of
// the worker's two lists at any time: the wish list (not yet handed to the
// scheduler, guarded by wishesMu) or the schedules list (handed to the
// scheduler, touched only on the worker goroutine).
type job struct {
	prev, next *job
	owner      *Worker
	routine    Routine
	data       any
	priority   sched.Priority
	// scheduledAs is the scheduler task handle, set once the listener (or a
	// worker-goroutine push) promotes the node out of the wish list.
	scheduledAs *sched.Task
}

// unlink removes j from the schedules list. Worker goroutine only.
func (j *job) unlink() {
	if j.owner.schedules == j {
		j.owner.schedules = j.next
	} else if j.prev != nil {
		j.prev.next = j.next
	}
	if j.next != nil {
		j.next.prev = j.prev
	}
	j.prev = nil
	j.next = nil
}
