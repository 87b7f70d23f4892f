// Package worker lets a single-goroutine cooperative scheduler coexist with
// ordinary preemptively scheduled goroutines.
//
// A [Worker] is a handle through which any goroutine may enqueue a callback
// to be executed inside the scheduler goroutine at a chosen priority, and
// through which the scheduler may be torn down from outside with
// well-defined synchronization semantics. Cross-goroutine submission rides
// a pipe-based wake channel: submitters append to a wish queue and write
// one byte; a listener task inside the scheduler drains the byte, promotes
// the queued wishes into scheduled tasks, and re-arms itself.
//
// Three constructions are supported:
//
//   - [Create] starts a scheduler in a new goroutine and returns at once.
//   - [StartServing] turns the calling goroutine into the scheduler and
//     returns when the scheduler does.
//   - [AdoptRunning] installs a worker into a scheduler that is already
//     running, to be removed later with [Worker.Dismiss].
//
// Teardown comes in asynchronous ([Worker.DestroyAsync]), synchronous
// ([Worker.DestroySync]), and deadline-bounded ([Worker.DestroyTimed])
// flavors, all of which detect double frees and racing destroyers. A worker
// whose wake channel breaks parks in a recoverable zombie state rather than
// leaking undefined behavior; see [Worker.Ping].
//
// The scheduler half of the contract lives in
// [github.com/joeycumines/go-worker/sched].
package worker
