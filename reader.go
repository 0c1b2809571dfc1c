package serialconn

import (
	"errors"
	"time"
)

const (
	// readBufSize is the scratch buffer for one read; message boundaries
	// are exactly whatever one read returns.
	readBufSize = 2048

	// readerBackoff is slept after an I/O failure before the next attempt
	readerBackoff = 1 * time.Second
)

// readLoop drains bytes from an open handle and delivers each non-empty
// read as one message, in arrival order. It runs until the handle is
// woken by closeLocked. An I/O failure raises the error flag and the
// loop keeps going with a fixed backoff so the watcher can take over.
func (c *Conn) readLoop(h *handle, device string, timeout time.Duration, done chan struct{}) {
	defer close(done)
	buf := make([]byte, readBufSize)
	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := h.read(buf, timeout)
		if err != nil {
			if errors.Is(err, ErrPortClosed) {
				return
			}
			c.errFlag.Store(true)
			c.log.Warn().Err(err).Str("device", device).Msg("read failed")
			select {
			case <-h.stop:
				return
			case <-time.After(readerBackoff):
			}
			continue
		}
		if n == 0 {
			// idle timeout
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		c.emitMessage(data)
	}
}
