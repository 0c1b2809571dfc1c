package serialconn

// StatusKind classifies a connection status change
type StatusKind int

const (
	// StatusDisconnected is raised when the connection is closed for good,
	// either by Disconnect or because a never-recovered handle was released.
	StatusDisconnected StatusKind = iota
	// StatusConnected is raised every time the handle opens successfully.
	StatusConnected
	// StatusReconnecting is raised when a failed handle is closed and the
	// watcher is about to attempt reopening it.
	StatusReconnecting
)

func (k StatusKind) String() string {
	switch k {
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Status describes a connection status change
type Status struct {
	Connected bool
	Kind      StatusKind
}

// StatusHandler receives connection status changes. It is invoked
// synchronously on the goroutine driving the change, with the
// connection lock held: handlers must not block and must not call back
// into the Conn. Hand the Status off to another goroutine for anything
// beyond recording it.
type StatusHandler func(Status)

// MessageHandler receives raw byte chunks exactly as returned by the
// underlying read, in arrival order. The slice is owned by the handler.
// It is invoked synchronously on the reader goroutine; handlers must not
// block and must not call back into the Conn.
type MessageHandler func(data []byte)

// OnStatus registers the status change handler. A nil handler disables
// status notifications.
func (c *Conn) OnStatus(fn StatusHandler) {
	c.cbMu.Lock()
	c.onStatus = fn
	c.cbMu.Unlock()
}

// OnMessage registers the received data handler. A nil handler disables
// message notifications.
func (c *Conn) OnMessage(fn MessageHandler) {
	c.cbMu.Lock()
	c.onMessage = fn
	c.cbMu.Unlock()
}

func (c *Conn) emitStatus(connected bool, kind StatusKind) {
	c.cbMu.RLock()
	cb := c.onStatus
	c.cbMu.RUnlock()
	if cb != nil {
		cb(Status{Connected: connected, Kind: kind})
	}
}

func (c *Conn) emitMessage(data []byte) {
	c.cbMu.RLock()
	cb := c.onMessage
	c.cbMu.RUnlock()
	if cb != nil {
		cb(data)
	}
}
