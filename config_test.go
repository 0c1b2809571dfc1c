package serialconn

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", config.DataBits)
	}
	if config.StopBits != StopBitsOne {
		t.Errorf("StopBits = %d, want %d", config.StopBits, StopBitsOne)
	}
	if config.Parity != ParityNone {
		t.Errorf("Parity = %d, want %d", config.Parity, ParityNone)
	}
	if config.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", config.ReadTimeout)
	}
	if config.WriteTimeout != 5*time.Second {
		t.Errorf("WriteTimeout = %v, want 5s", config.WriteTimeout)
	}
	if config.ReconnectDelay != 1*time.Second {
		t.Errorf("ReconnectDelay = %v, want 1s", config.ReconnectDelay)
	}
}

func TestWithBaudRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		wantErr bool
	}{
		{"9600 (valid)", 9600, false},
		{"115200 (valid)", 115200, false},
		{"4000000 (max)", 4000000, false},
		{"50 (min)", 50, false},
		{"0 (invalid)", 0, true},
		{"12345 (not a standard rate)", 12345, true},
		{"-9600 (negative)", -9600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("/dev/null", WithBaudRate(tt.rate))
			if (err != nil) != tt.wantErr {
				t.Errorf("WithBaudRate(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			}
			if err == nil && c.Config().BaudRate != tt.rate {
				t.Errorf("BaudRate = %d, want %d", c.Config().BaudRate, tt.rate)
			}
		})
	}
}

func TestWithDataBits(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantErr bool
	}{
		{"5 bits", 5, false},
		{"6 bits", 6, false},
		{"7 bits", 7, false},
		{"8 bits", 8, false},
		{"4 bits (too few)", 4, true},
		{"9 bits (too many)", 9, true},
		{"0 bits", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("/dev/null", WithDataBits(tt.bits))
			if (err != nil) != tt.wantErr {
				t.Errorf("WithDataBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
			}
			if err == nil && c.Config().DataBits != tt.bits {
				t.Errorf("DataBits = %d, want %d", c.Config().DataBits, tt.bits)
			}
		})
	}
}

func TestWithStopBits(t *testing.T) {
	tests := []struct {
		name    string
		bits    StopBits
		wantErr bool
	}{
		{"one stop bit", StopBitsOne, false},
		{"two stop bits", StopBitsTwo, false},
		{"1.5 stop bits (unsupported)", StopBitsOnePointFive, true},
		{"zero stop bits", StopBits(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("/dev/null", WithStopBits(tt.bits))
			if (err != nil) != tt.wantErr {
				t.Errorf("WithStopBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
			}
			if err == nil && c.Config().StopBits != tt.bits {
				t.Errorf("StopBits = %d, want %d", c.Config().StopBits, tt.bits)
			}
		})
	}
}

func TestWithParity(t *testing.T) {
	tests := []struct {
		name    string
		parity  Parity
		wantErr bool
	}{
		{"none", ParityNone, false},
		{"odd", ParityOdd, false},
		{"even", ParityEven, false},
		{"mark", ParityMark, false},
		{"space", ParitySpace, false},
		{"out of range", Parity(99), true},
		{"negative", Parity(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("/dev/null", WithParity(tt.parity))
			if (err != nil) != tt.wantErr {
				t.Errorf("WithParity(%d) error = %v, wantErr %v", tt.parity, err, tt.wantErr)
			}
			if err == nil && c.Config().Parity != tt.parity {
				t.Errorf("Parity = %d, want %d", c.Config().Parity, tt.parity)
			}
		})
	}
}

func TestTimeoutOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{"read timeout 100ms", WithReadTimeout(100 * time.Millisecond), false},
		{"read timeout zero", WithReadTimeout(0), true},
		{"read timeout negative", WithReadTimeout(-time.Second), true},
		{"write timeout 1s", WithWriteTimeout(time.Second), false},
		{"write timeout zero", WithWriteTimeout(0), true},
		{"reconnect delay 50ms", WithReconnectDelay(50 * time.Millisecond), false},
		{"reconnect delay zero", WithReconnectDelay(0), true},
		{"reconnect delay negative", WithReconnectDelay(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("/dev/null", tt.opt)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Device = "/dev/ttyUSB0"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero value", func(c *Config) { *c = Config{} }, true},
		{"bad baud", func(c *Config) { c.BaudRate = 12345 }, true},
		{"bad data bits", func(c *Config) { c.DataBits = 4 }, true},
		{"1.5 stop bits", func(c *Config) { c.StopBits = StopBitsOnePointFive }, true},
		{"bad parity", func(c *Config) { c.Parity = Parity(99) }, true},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, true},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }, true},
		{"zero reconnect delay", func(c *Config) { c.ReconnectDelay = 0 }, true},
		{"negative reconnect delay", func(c *Config) { c.ReconnectDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEqual(t *testing.T) {
	a := DefaultConfig()
	a.Device = "/dev/ttyUSB0"

	b := a
	if !a.Equal(b) {
		t.Error("identical configs reported as different")
	}

	b.BaudRate = 9600
	if a.Equal(b) {
		t.Error("configs with different baud rates reported as equal")
	}

	b = a
	b.ReconnectDelay = 2 * time.Second
	if a.Equal(b) {
		t.Error("configs with different reconnect delays reported as equal")
	}
}

func TestBaudToUnix(t *testing.T) {
	for rate := range baudRates {
		if _, err := baudToUnix(rate); err != nil {
			t.Errorf("baudToUnix(%d) failed: %v", rate, err)
		}
	}
	if _, err := baudToUnix(31337); err == nil {
		t.Error("baudToUnix(31337) should fail")
	}
}
