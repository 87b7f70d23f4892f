//go:build darwin

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

// poller watches file descriptors using kqueue. It is confined to the loop
// goroutine, so no locking is required.
type poller struct {
	kq       int
	fds      map[int]*pollEntry
	eventBuf [64]unix.Kevent_t
	closed   bool
}

type pollEntry struct {
	callback func(ioEvents)
	events   ioEvents
}

func (p *poller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.fds = make(map[int]*pollEntry)
	return nil
}

func (p *poller) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
}

func (p *poller) register(fd int, events ioEvents, cb func(ioEvents)) error {
	if p.closed {
		return errPollerClosed
	}
	if _, ok := p.fds[fd]; ok {
		return errFDAlreadyRegistered
	}
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
			return err
		}
	}
	p.fds[fd] = &pollEntry{callback: cb, events: events}
	return nil
}

func (p *poller) unregister(fd int) error {
	entry, ok := p.fds[fd]
	if !ok {
		return errFDNotRegistered
	}
	delete(p.fds, fd)
	kevents := eventsToKevents(fd, entry.events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(p.kq, kevents, nil, nil)
	}
	return nil
}

// poll blocks for up to timeoutMs milliseconds (-1 blocks indefinitely) and
// dispatches ready descriptors to their callbacks. Returns the number of
// events received, including any whose descriptor no longer has a callback.
func (p *poller) poll(timeoutMs int) (int, error) {
	if p.closed {
		return 0, errPollerClosed
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if entry, ok := p.fds[fd]; ok && entry.callback != nil {
			entry.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
	return n, nil
}

func eventsToKevents(fd int, events ioEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&eventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&eventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) ioEvents {
	var events ioEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= eventRead
	case unix.EVFILT_WRITE:
		events |= eventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= eventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= eventHangup
	}
	return events
}
