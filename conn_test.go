package serialconn

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newTestConn opens a pty pair and a connection manager on its slave end
// with timings short enough for tests. Status changes and received
// messages are buffered on the returned channels.
func newTestConn(t *testing.T) (*Conn, *os.File, chan Status, chan []byte) {
	t.Helper()

	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	conn, err := New(slave.Name(),
		WithReadTimeout(100*time.Millisecond),
		WithWriteTimeout(time.Second),
		WithReconnectDelay(50*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(conn.Disconnect)

	statuses := make(chan Status, 32)
	messages := make(chan []byte, 32)
	conn.OnStatus(func(s Status) { statuses <- s })
	conn.OnMessage(func(data []byte) { messages <- data })

	return conn, master, statuses, messages
}

// waitStatus blocks until a status change of the wanted kind arrives.
// Other kinds seen along the way are returned for inspection.
func waitStatus(t *testing.T, statuses chan Status, want StatusKind, timeout time.Duration) []Status {
	t.Helper()
	var seen []Status
	deadline := time.After(timeout)
	for {
		select {
		case s := <-statuses:
			if s.Kind == want {
				return seen
			}
			seen = append(seen, s)
		case <-deadline:
			t.Fatalf("timeout waiting for status %v, saw %v", want, seen)
		}
	}
}

func TestConnectAndReceive(t *testing.T) {
	conn, master, statuses, messages := newTestConn(t)

	require.True(t, conn.Connect())
	require.True(t, conn.IsConnected())

	s := <-statuses
	require.True(t, s.Connected)
	require.Equal(t, StatusConnected, s.Kind)

	// Binary payloads must arrive unmodified, including NUL and high bytes
	payload := []byte{0x01, 0x03, 0x00, 0x02, 0xFE}
	_, err := master.Write(payload)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		require.Equal(t, payload, msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSendReachesPeer(t *testing.T) {
	conn, master, _, _ := newTestConn(t)

	require.True(t, conn.Connect())
	require.True(t, conn.Send([]byte("ping\n")))

	buf := make([]byte, 64)
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping\n", string(buf[:n]))
}

func TestSendWhileDisconnected(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	conn, err := New(slave.Name())
	require.NoError(t, err)

	// Never connected: Send reports failure instead of erroring
	require.False(t, conn.Send([]byte("lost")))
	require.False(t, conn.IsConnected())
}

func TestDisconnect(t *testing.T) {
	conn, _, statuses, _ := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	conn.Disconnect()
	require.False(t, conn.IsConnected())

	s := <-statuses
	require.False(t, s.Connected)
	require.Equal(t, StatusDisconnected, s.Kind)

	// The closed connection refuses writes
	require.False(t, conn.Send([]byte("late")))

	// Idempotent: a second disconnect raises nothing
	conn.Disconnect()
	select {
	case s := <-statuses:
		t.Fatalf("unexpected status after second disconnect: %v", s)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnectWhileDisconnecting(t *testing.T) {
	conn, _, _, _ := newTestConn(t)

	conn.disconnecting.Store(true)
	require.False(t, conn.Connect())
	require.False(t, conn.IsConnected())
	conn.disconnecting.Store(false)
}

func TestSetConfigUnchangedIsSilent(t *testing.T) {
	conn, _, statuses, _ := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	conn.SetConfig(conn.Config())

	select {
	case s := <-statuses:
		t.Fatalf("unexpected status after no-op SetConfig: %v", s)
	case <-time.After(200 * time.Millisecond):
	}
	require.True(t, conn.IsConnected())
}

func TestSetConfigChangedReconnectsImmediately(t *testing.T) {
	conn, master, statuses, messages := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	cfg := conn.Config()
	cfg.BaudRate = 9600
	conn.SetConfig(cfg)

	// The handle cycles before SetConfig returns: down then up again
	s := <-statuses
	require.False(t, s.Connected)
	require.Equal(t, StatusReconnecting, s.Kind)
	s = <-statuses
	require.True(t, s.Connected)
	require.Equal(t, StatusConnected, s.Kind)

	require.Equal(t, 9600, conn.Config().BaudRate)
	require.True(t, conn.IsConnected())

	// The reopened handle still delivers data
	_, err := master.Write([]byte("after"))
	require.NoError(t, err)
	select {
	case msg := <-messages:
		require.Equal(t, []byte("after"), msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message after reconnect")
	}
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	conn, _, statuses, _ := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	active := conn.Config()

	// A zero reconnect delay would turn the watcher into a busy loop;
	// the easy zero-value mistake must not reach it
	cfg := active
	cfg.ReconnectDelay = 0
	conn.SetConfig(cfg)

	require.Equal(t, active, conn.Config())
	require.True(t, conn.IsConnected())

	// The zero value is rejected outright
	conn.SetConfig(Config{})
	require.Equal(t, active, conn.Config())

	select {
	case s := <-statuses:
		t.Fatalf("unexpected status after rejected SetConfig: %v", s)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSendWriteFailureTriggersRecovery(t *testing.T) {
	conn, _, statuses, _ := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	// Park the reader first so the write itself is what trips the
	// fault, then pull the descriptor out from under the handle
	conn.mu.Lock()
	h := conn.h
	done := conn.readerDone
	conn.mu.Unlock()
	h.wake()
	<-done
	require.NoError(t, unix.Close(h.fd))
	require.True(t, conn.IsConnected())

	require.False(t, conn.Send([]byte("doomed")))
	require.True(t, conn.errFlag.Load())
	require.False(t, conn.IsConnected())

	// The failed write hands the connection to the watcher
	s := <-statuses
	require.False(t, s.Connected)
	require.Equal(t, StatusReconnecting, s.Kind)
	waitStatus(t, statuses, StatusConnected, 2*time.Second)
	require.True(t, conn.IsConnected())
}

func TestFaultTriggersRecovery(t *testing.T) {
	conn, master, statuses, messages := newTestConn(t)

	require.True(t, conn.Connect())
	waitStatus(t, statuses, StatusConnected, time.Second)

	// Simulate a driver fault on the open handle
	conn.errFlag.Store(true)
	require.False(t, conn.IsConnected())

	// The watcher closes the faulted handle on one tick and reopens it
	// on a later one
	s := <-statuses
	require.False(t, s.Connected)
	require.Equal(t, StatusReconnecting, s.Kind)
	waitStatus(t, statuses, StatusConnected, 2*time.Second)
	require.True(t, conn.IsConnected())

	// Data flows again after recovery
	_, err := master.Write([]byte("recovered"))
	require.NoError(t, err)
	select {
	case msg := <-messages:
		require.Equal(t, []byte("recovered"), msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message after recovery")
	}
}

func TestConnectMissingDeviceKeepsRetrying(t *testing.T) {
	conn, err := New("/dev/ttyDOESNOTEXIST0",
		WithReconnectDelay(50*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(conn.Disconnect)

	statuses := make(chan Status, 32)
	conn.OnStatus(func(s Status) { statuses <- s })

	// First attempt fails, no status event fires for a failed open
	require.False(t, conn.Connect())
	require.False(t, conn.IsConnected())

	select {
	case s := <-statuses:
		t.Fatalf("unexpected status for failed open: %v", s)
	case <-time.After(300 * time.Millisecond):
	}

	// Disconnect stops the retrying watcher without ever having connected
	conn.Disconnect()
	require.False(t, conn.IsConnected())
}

func TestNewRejectsInvalidOption(t *testing.T) {
	_, err := New("/dev/ttyUSB0", WithBaudRate(31337))
	require.ErrorIs(t, err, ErrInvalidBaudRate)

	_, err = New("/dev/ttyUSB0", WithDataBits(3))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
