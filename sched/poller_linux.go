//go:build linux

package sched

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ioEvents is the set of I/O conditions a descriptor can report.
type ioEvents uint32

const (
	eventRead ioEvents = 1 << iota
	eventWrite
	eventError
	eventHangup
)

var (
	errFDAlreadyRegistered = errors.New("sched: fd already registered")
	errFDNotRegistered     = errors.New("sched: fd not registered")
	errPollerClosed        = errors.New("sched: poller closed")
)

// poller watches file descriptors using epoll. It is confined to the loop
// goroutine, so no locking is required.
type poller struct {
	epfd     int
	fds      map[int]*pollEntry
	eventBuf [64]unix.EpollEvent
	closed   bool
}

type pollEntry struct {
	callback func(ioEvents)
	events   ioEvents
}

func (p *poller) init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.fds = make(map[int]*pollEntry)
	return nil
}

func (p *poller) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.epfd)
}

func (p *poller) register(fd int, events ioEvents, cb func(ioEvents)) error {
	if p.closed {
		return errPollerClosed
	}
	if _, ok := p.fds[fd]; ok {
		return errFDAlreadyRegistered
	}
	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	p.fds[fd] = &pollEntry{callback: cb, events: events}
	return nil
}

func (p *poller) unregister(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return errFDNotRegistered
	}
	delete(p.fds, fd)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// poll blocks for up to timeoutMs milliseconds (-1 blocks indefinitely) and
// dispatches ready descriptors to their callbacks. Returns the number of
// events received, including any whose descriptor no longer has a callback.
func (p *poller) poll(timeoutMs int) (int, error) {
	if p.closed {
		return 0, errPollerClosed
	}
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if entry, ok := p.fds[fd]; ok && entry.callback != nil {
			entry.callback(epollToEvents(p.eventBuf[i].Events))
		}
	}
	return n, nil
}

func eventsToEpoll(events ioEvents) uint32 {
	var epollEvents uint32
	if events&eventRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&eventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

func epollToEvents(epollEvents uint32) ioEvents {
	var events ioEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= eventRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= eventWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= eventError
	}
	if epollEvents&unix.EPOLLHUP != 0 {
		events |= eventHangup
	}
	return events
}
