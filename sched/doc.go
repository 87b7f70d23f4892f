// Package sched implements a single-goroutine cooperative scheduler.
//
// A Scheduler owns a set of tasks and runs them, one at a time, on the
// goroutine that called [Scheduler.Run]. Tasks are ordered by [Priority]
// (highest first, FIFO within a priority). Besides plain tasks, the
// scheduler supports one-shot file-descriptor readiness tasks, registered
// via [Scheduler.AddSelect] and driven by a platform poller (epoll on
// Linux, kqueue on Darwin), and shutdown hooks, which fire after the main
// loop exits.
//
// Run returns once shutdown has been requested via [Scheduler.Shutdown],
// or once no task remains. In both cases the shutdown hooks that are still
// registered fire exactly once, in registration order, before Run returns.
//
// # Concurrency
//
// The scheduler is deliberately not safe for concurrent use: every method
// except Run and OnLoopGoroutine must be called from the loop goroutine,
// i.e. from within a task. Cross-goroutine submission is the business of the worker package,
// which funnels everything through a readiness fd.
package sched
