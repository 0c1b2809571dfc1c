// Package serialconn provides resilient, event-driven byte-stream
// communication over a serial interface (USB-serial, RS-232, virtual COM
// port) for applications that must stay connected to a device across
// cable unplugs, device resets and transient OS-level I/O failures,
// without managing reconnection logic themselves.
//
// # Basic Usage
//
// Create a connection manager with default configuration (115200 8N1)
// and register handlers before connecting:
//
//	conn, err := serialconn.New("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn.OnMessage(func(data []byte) {
//	    fmt.Printf("RX: % X\n", data)
//	})
//	conn.OnStatus(func(s serialconn.Status) {
//	    fmt.Printf("status: %s\n", s.Kind)
//	})
//
//	conn.Connect()
//	defer conn.Disconnect()
//
//	conn.Send([]byte("AT\r\n"))
//
// # Recovery Model
//
// Connect starts a background watcher that keeps the connection alive:
// any I/O failure marks the connection faulted, the watcher closes the
// handle (raising a reconnecting status event) and reopens it on a later
// tick at the configured reconnect delay. Open failures are retried
// forever; there is no fatal failure state besides an explicit
// Disconnect.
//
// Send and Connect report failure as a boolean, never as an error: a
// failed write simply returns false and hands the connection to the
// watcher for recovery.
//
// # Delivery Contract
//
// Received bytes are delivered exactly as returned by the underlying
// read, one message per read, in arrival order. No framing, delimiting
// or reassembly is performed; that belongs to a higher layer. Handlers
// run synchronously on the emitting goroutine, in places while the
// connection lock is held: they must not block and must not call back
// into the Conn. Hand the data to a channel or another goroutine
// instead, the way the bundled listen command feeds its UI.
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	conn, err := serialconn.New("/dev/ttyUSB0",
//	    serialconn.WithBaudRate(9600),
//	    serialconn.WithParity(serialconn.ParityEven),
//	    serialconn.WithReconnectDelay(500*time.Millisecond),
//	    serialconn.WithLogger(logger),
//	)
//
// Replacing the configuration while connected reconnects immediately
// with the new values:
//
//	cfg := conn.Config()
//	cfg.BaudRate = 57600
//	conn.SetConfig(cfg)
//
// # Port Discovery
//
// List available serial ports:
//
//	ports, err := serialconn.ListPorts()
//	for _, path := range ports {
//	    info, _ := serialconn.GetPortInfo(path)
//	    fmt.Printf("%s: %s\n", info.Path, info.Description)
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 5s
//   - WriteTimeout: 5s
//   - ReconnectDelay: 1s
//
// # Platform Support
//
// Linux only (x86_64 and ARM), matching the termios port layer.
package serialconn
