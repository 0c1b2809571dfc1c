package serialconn

import "time"

// watchLoop observes the error flag and drives close/reopen cycles. It
// runs from Connect until Disconnect. Recovery is two-phase: a faulted
// open handle is closed on one tick and reopened on a later one, which
// bounds the reconnect rate and gives the OS time to release the device
// node.
func (c *Conn) watchLoop(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-time.After(c.reconnectDelay()):
		}

		if !c.errFlag.Load() || c.disconnecting.Load() {
			continue
		}

		c.mu.Lock()
		if c.disconnecting.Load() {
			c.mu.Unlock()
			continue
		}
		if c.h != nil {
			c.closeLocked(StatusReconnecting)
		} else if err := c.openLocked(); err != nil {
			c.log.Debug().Err(err).Str("device", c.cfg.Device).Msg("reopen failed, will retry")
		}
		c.mu.Unlock()
	}
}

func (c *Conn) reconnectDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.ReconnectDelay
}
