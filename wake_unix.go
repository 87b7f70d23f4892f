//go:build linux || darwin

package worker

import "golang.org/x/sys/unix"

// beepCode is the sentinel written down the wake pipe. The value is a sanity
// check only; the listener logs anything else and carries on.
const beepCode byte = '\a'

// newWakePipe creates the wake channel: a pipe whose read end is
// non-blocking (the listener must drain exactly one byte per wake without
// ever stalling the scheduler).
func newWakePipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

// writeBeep writes a single sentinel byte, reporting whether exactly one
// byte went through.
func writeBeep(fd int) bool {
	n, err := unix.Write(fd, []byte{beepCode})
	return err == nil && n == 1
}

// readBeep drains exactly one byte, returning it and whether the read
// succeeded.
func readBeep(fd int) (byte, bool) {
	var buf [1]byte
	n, err := unix.Read(fd, buf[:])
	return buf[0], err == nil && n == 1
}

func closeFD(fd int) {
	if fd >= 0 {
		_ = unix.Close(fd)
	}
}
