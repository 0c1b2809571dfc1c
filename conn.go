package serialconn

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// teardownTimeout bounds how long Close and Disconnect wait for a
	// background loop to join before abandoning it.
	teardownTimeout = 5 * time.Second
)

// Conn manages one serial connection across cable unplugs, device resets
// and transient I/O failures. Once Connect has been called, a background
// watcher keeps reopening the device at the configured reconnect delay
// until Disconnect is called. Received bytes and status changes are
// delivered through the handlers registered with OnMessage and OnStatus.
//
// Conn is safe for concurrent use. All state is in-memory; nothing is
// persisted across process restarts.
type Conn struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger

	h          *handle // nil while closed; guarded by mu
	readerDone chan struct{}

	watcherStop chan struct{}
	watcherDone chan struct{}

	// Connection state is three booleans with a strict relationship:
	// IsConnected == opened && !errFlag && !disconnecting.
	opened        atomic.Bool
	errFlag       atomic.Bool
	disconnecting atomic.Bool

	cbMu      sync.RWMutex
	onStatus  StatusHandler
	onMessage MessageHandler
}

// New creates a connection manager for the given device path. The
// connection is not opened until Connect is called.
func New(device string, opts ...Option) (*Conn, error) {
	c := &Conn{
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	c.cfg.Device = device
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// IsConnected reports whether the handle is open and healthy
func (c *Conn) IsConnected() bool {
	return c.opened.Load() && !c.errFlag.Load() && !c.disconnecting.Load()
}

// Config returns the active configuration
func (c *Conn) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Connect opens the device and starts the recovery watcher. It returns
// false if a disconnect is currently in progress, otherwise the
// resulting IsConnected value: false means the open attempt failed and
// the watcher will keep retrying at the configured reconnect delay.
// Safe to call repeatedly; an existing handle is closed first.
func (c *Conn) Connect() bool {
	if c.disconnecting.Load() {
		c.log.Debug().Err(ErrDisconnecting).Msg("connect refused")
		return false
	}
	c.mu.Lock()
	if err := c.openLocked(); err != nil {
		c.log.Warn().Err(err).Str("device", c.cfg.Device).Msg("connect failed, watcher will retry")
	}
	c.startWatcherLocked()
	c.mu.Unlock()
	return c.IsConnected()
}

// Disconnect stops the watcher, closes the handle and leaves the
// connection down until the next Connect. Idempotent; a concurrent call
// while one is in progress is a no-op.
func (c *Conn) Disconnect() {
	if !c.disconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.disconnecting.Store(false)

	c.stopWatcher()

	c.mu.Lock()
	c.closeLocked(StatusDisconnected)
	c.mu.Unlock()
}

// SetConfig replaces the configuration. An identical configuration is a
// no-op and raises no events; an invalid one is rejected with a log
// message and the active configuration stays in effect. If the
// configuration changed while connected the handle is closed and
// reopened with the new values before SetConfig returns, independent of
// the watcher cadence.
func (c *Conn) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Equal(c.cfg) {
		return
	}
	if err := cfg.validate(); err != nil {
		c.log.Warn().Err(err).Msg("rejecting invalid configuration")
		return
	}
	c.cfg = cfg
	if c.h == nil {
		return
	}
	c.closeLocked(StatusReconnecting)
	if err := c.openLocked(); err != nil {
		c.log.Warn().Err(err).Str("device", c.cfg.Device).Msg("reopen with new config failed, watcher will retry")
	}
}

// Send writes data synchronously. It returns false without raising any
// event if the connection is down or the write fails; a failed write
// marks the connection faulted so the watcher initiates recovery. Write
// failures never escape to the caller as an error.
func (c *Conn) Send(data []byte) bool {
	if !c.IsConnected() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return false
	}
	if err := c.h.write(data, c.cfg.WriteTimeout); err != nil {
		c.log.Warn().Err(err).Int("len", len(data)).Msg("send failed")
		c.errFlag.Store(true)
		return false
	}
	return true
}

// openLocked closes any stale handle, opens and configures a new one and
// starts the reader loop. On failure the handle stays unset, the error
// flag is raised and no event fires. Caller holds mu.
func (c *Conn) openLocked() error {
	c.closeLocked(StatusReconnecting)

	h, err := openHandle(c.cfg)
	if err != nil {
		c.errFlag.Store(true)
		return err
	}
	c.h = h
	c.readerDone = make(chan struct{})
	c.opened.Store(true)
	c.errFlag.Store(false)

	go c.readLoop(h, c.cfg.Device, c.cfg.ReadTimeout, c.readerDone)

	c.log.Debug().Str("device", c.cfg.Device).Int("baud", c.cfg.BaudRate).Msg("connected")
	c.emitStatus(true, StatusConnected)
	return nil
}

// closeLocked stops the reader with a bounded join, releases the handle
// and raises a status event with the given kind. Closing a never-opened
// handle is silent. The error flag is left raised so the watcher reopens
// unless a disconnect is in progress. Caller holds mu.
func (c *Conn) closeLocked(kind StatusKind) {
	if c.h == nil {
		return
	}

	c.h.wake()
	select {
	case <-c.readerDone:
	case <-time.After(teardownTimeout):
		c.log.Warn().Str("device", c.cfg.Device).Msg("reader did not stop in time, abandoning")
	}

	if counters, err := c.h.lineCounters(); err == nil {
		c.log.Debug().
			Int32("frame", counters.Frame-c.h.counters.Frame).
			Int32("overrun", counters.Overrun-c.h.counters.Overrun).
			Int32("parity", counters.Parity-c.h.counters.Parity).
			Msg("line error counters since open")
	}

	if err := c.h.close(); err != nil {
		c.log.Debug().Err(err).Str("device", c.cfg.Device).Msg("close failed")
	}
	c.h = nil
	c.readerDone = nil
	c.opened.Store(false)

	c.log.Debug().Str("device", c.cfg.Device).Stringer("kind", kind).Msg("disconnected")
	c.emitStatus(false, kind)

	c.errFlag.Store(true)
}

// startWatcherLocked starts the watcher loop if it is not already
// running. Caller holds mu.
func (c *Conn) startWatcherLocked() {
	if c.watcherDone != nil {
		select {
		case <-c.watcherDone:
			// previous watcher exited
		default:
			return
		}
	}
	c.watcherStop = make(chan struct{})
	c.watcherDone = make(chan struct{})
	go c.watchLoop(c.watcherStop, c.watcherDone)
}

// stopWatcher signals the watcher and waits for it with a bounded join
func (c *Conn) stopWatcher() {
	c.mu.Lock()
	stop, done := c.watcherStop, c.watcherDone
	device := c.cfg.Device
	c.watcherStop, c.watcherDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(teardownTimeout):
		c.log.Warn().Str("device", device).Msg("watcher did not stop in time, abandoning")
	}
}
