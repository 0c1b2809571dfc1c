//go:build linux

package serialconn

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// handle is the OS-level open serial resource. It is exclusively owned by
// Conn; the reader loop touches it only for read, never for lifecycle.
type handle struct {
	fd    int
	pipeR int // self-pipe, wakes a blocked read on close
	pipeW int
	stop  chan struct{}
	once  sync.Once

	// driver line-error counters snapshotted at open, logged as a delta
	// at close
	counters lineCounters
}

// CMSPAR enables mark/space parity; not exported by the unix package.
const cmspar = 0x40000000

// baudRates maps a baud rate to the corresponding constant in the unix package.
var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	3000000: unix.B3000000,
	4000000: unix.B4000000,
}

// baudToUnix converts an integer baud rate to the unix constant
func baudToUnix(rate int) (uint32, error) {
	baud, ok := baudRates[rate]
	if !ok {
		return 0, ErrInvalidBaudRate
	}
	return baud, nil
}

// openHandle opens and configures the serial device described by cfg.
// The device node is checked for existence first to avoid the slow
// in-kernel failure path for missing nodes.
func openHandle(cfg Config) (*handle, error) {
	if _, err := os.Stat(cfg.Device); err != nil {
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		return nil, ErrDeviceNotFound
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Device, err)
	}

	if err := configureHandle(fd, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// Back to blocking mode now that config is done; reads are bounded
	// by poll, not O_NONBLOCK.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to clear O_NONBLOCK: %w", err)
	}

	// Discard stale input buffered by the driver before we were attached
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to create wake pipe: %w", err)
	}

	h := &handle{
		fd:    fd,
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
		stop:  make(chan struct{}),
	}

	// Subscribe to the driver's parity/frame/overrun counters. Virtual
	// ports do not implement TIOCGICOUNT; that is fine.
	if counters, err := h.lineCounters(); err == nil {
		h.counters = counters
	}

	return h, nil
}

// configureHandle applies raw mode, baud rate, data bits, stop bits and
// parity to an open descriptor.
func configureHandle(fd int, cfg Config) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ISIG | unix.IEXTEN
	t.Oflag &^= unix.OPOST | unix.ONLCR | unix.OCRNL
	t.Iflag &^= unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IGNBRK | unix.INPCK | unix.ISTRIP | unix.IXON | unix.IXOFF
	t.Cflag &^= unix.CRTSCTS

	// Reads are bounded by poll; the driver should return whatever is
	// available immediately.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	baud, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return err
	}
	t.Cflag = (t.Cflag &^ unix.CBAUD) | baud
	t.Ispeed = baud
	t.Ospeed = baud

	t.Cflag &^= unix.CSIZE
	switch cfg.DataBits {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		return fmt.Errorf("%w: data bits must be 5..8, got %d", ErrInvalidConfig, cfg.DataBits)
	}

	switch cfg.StopBits {
	case StopBitsOne:
		t.Cflag &^= unix.CSTOPB
	case StopBitsTwo:
		t.Cflag |= unix.CSTOPB
	default:
		return fmt.Errorf("%w: unsupported stop bits %d", ErrInvalidConfig, cfg.StopBits)
	}

	t.Cflag &^= unix.PARENB | unix.PARODD | cmspar
	switch cfg.Parity {
	case ParityNone:
		// parity bit off, no parity checking
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark:
		t.Cflag |= unix.PARENB | cmspar | unix.PARODD
	case ParitySpace:
		t.Cflag |= unix.PARENB | cmspar
	default:
		return fmt.Errorf("%w: invalid parity %d", ErrInvalidConfig, cfg.Parity)
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// read performs one bounded read. It returns 0 bytes and a nil error on
// an idle timeout, ErrPortClosed when woken by wake(), and the underlying
// I/O error otherwise.
func (h *handle) read(buf []byte, timeout time.Duration) (int, error) {
	pfds := []unix.PollFd{
		{Fd: int32(h.fd), Events: unix.POLLIN},
		{Fd: int32(h.pipeR), Events: unix.POLLIN},
	}
	n, err := unix.Poll(pfds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		// idle timeout
		return 0, nil
	}
	if pfds[1].Revents != 0 {
		return 0, ErrPortClosed
	}
	if pfds[0].Revents != 0 {
		n, err := unix.Read(h.fd, buf)
		if err != nil {
			return 0, fmt.Errorf("read: %w", err)
		}
		if n <= 0 {
			// POLLHUP with no data: the device went away
			return 0, io.EOF
		}
		return n, nil
	}
	return 0, nil
}

// write writes data fully, bounded by timeout.
func (h *handle) write(data []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for len(data) > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrWriteTimeout
		}
		pfds := []unix.PollFd{{Fd: int32(h.fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(pfds, int(remaining.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return ErrWriteTimeout
		}
		written, err := unix.Write(h.fd, data)
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			return fmt.Errorf("write: %w", err)
		}
		data = data[written:]
	}
	return nil
}

// wake unblocks any pending read via the self-pipe. Safe to call more
// than once.
func (h *handle) wake() {
	h.once.Do(func() {
		close(h.stop)
		_, _ = unix.Write(h.pipeW, []byte{1})
	})
}

// close wakes the reader and releases all descriptors
func (h *handle) close() error {
	h.wake()
	_ = unix.Close(h.pipeR)
	_ = unix.Close(h.pipeW)
	return unix.Close(h.fd)
}

// lineCounters mirrors the kernel's serial_icounter_struct
type lineCounters struct {
	CTS, DSR, Ring, DCD           int32
	Rx, Tx                        int32
	Frame, Overrun, Parity, Break int32
	BufOverrun                    int32
	reserved                      [9]int32 //nolint:unused
}

// lineCounters reads the driver's cumulative line error counters
// (TIOCGICOUNT). Not supported by virtual ports.
func (h *handle) lineCounters() (lineCounters, error) {
	var counters lineCounters
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), uintptr(unix.TIOCGICOUNT), uintptr(unsafe.Pointer(&counters)))
	if errno != 0 {
		return counters, fmt.Errorf("TIOCGICOUNT failed: %v", errno)
	}
	return counters, nil
}
