package serialconn

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// StopBits represents the number of stop bits
type StopBits int

const (
	StopBitsOne          StopBits = 1
	StopBitsTwo          StopBits = 2
	StopBitsOnePointFive StopBits = 15 // not supported by the Linux driver; rejected at open
)

// Config holds the configuration for a managed serial connection.
// Changing any field through SetConfig while connected forces an
// immediate reconnect with the new values.
type Config struct {
	Device         string // device path, e.g. /dev/ttyUSB0
	BaudRate       int
	DataBits       int
	StopBits       StopBits
	Parity         Parity
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReconnectDelay time.Duration // watcher poll interval between recovery steps
}

// DefaultConfig returns a configuration with sensible defaults (115200 8N1)
func DefaultConfig() Config {
	return Config{
		BaudRate:       115200,
		DataBits:       8,
		StopBits:       StopBitsOne,
		Parity:         ParityNone,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		ReconnectDelay: 1 * time.Second,
	}
}

// Equal reports whether two configurations match field by field.
// SetConfig uses this to decide whether a reconnect is needed.
func (c Config) Equal(other Config) bool {
	return c == other
}

// validate mirrors the option checks for configurations built by hand
// and passed to SetConfig.
func (c Config) validate() error {
	if _, err := baudToUnix(c.BaudRate); err != nil {
		return err
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits must be 5..8, got %d", ErrInvalidConfig, c.DataBits)
	}
	if c.StopBits != StopBitsOne && c.StopBits != StopBitsTwo {
		return fmt.Errorf("%w: unsupported stop bits %d", ErrInvalidConfig, c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return fmt.Errorf("%w: invalid parity %d", ErrInvalidConfig, c.Parity)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("%w: reconnect delay must be positive", ErrInvalidConfig)
	}
	return nil
}

// Option is a functional option for configuring a connection
type Option func(*Conn) error

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Conn) error {
		if _, err := baudToUnix(rate); err != nil {
			return err
		}
		c.cfg.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Conn) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.cfg.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits
func WithStopBits(bits StopBits) Option {
	return func(c *Conn) error {
		if bits != StopBitsOne && bits != StopBitsTwo {
			return ErrInvalidConfig
		}
		c.cfg.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Conn) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.cfg.Parity = parity
		return nil
	}
}

// WithReadTimeout bounds each read attempt of the reader loop
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Conn) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.cfg.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds each Send call
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Conn) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.cfg.WriteTimeout = timeout
		return nil
	}
}

// WithReconnectDelay sets the interval between watcher-driven recovery steps
func WithReconnectDelay(delay time.Duration) Option {
	return func(c *Conn) error {
		if delay <= 0 {
			return ErrInvalidConfig
		}
		c.cfg.ReconnectDelay = delay
		return nil
	}
}

// WithLogger sets the logger used for connection lifecycle and I/O
// failure messages. The default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Conn) error {
		c.log = log
		return nil
	}
}
