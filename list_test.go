package serialconn

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	// Check that all returned ports are valid paths
	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}

		// Verify it's a character device
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	// Check that ports are sorted
	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},     // Should exist and be a character device
		{"/dev/zero", true},     // Should exist and be a character device
		{"/tmp", false},         // Directory, not character device
		{"/nonexistent", false}, // Doesn't exist
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM1", "USB CDC/ACM Device"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc2", "i.MX Serial Port"},
		{"ttySAC1", "Samsung Serial Port"},
		{"ttyTHS3", "Tegra Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttyS0", "Standard Serial Port"},
		{"something", "Serial Port"},
	}

	for _, test := range tests {
		result := portDescription(test.name)
		if result != test.expected {
			t.Errorf("portDescription(%s) = %q, expected %q", test.name, result, test.expected)
		}
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo(/dev/null) failed: %v", err)
	}
	if info.Name != "null" {
		t.Errorf("Name = %q, expected %q", info.Name, "null")
	}
	if info.Path != "/dev/null" {
		t.Errorf("Path = %q, expected %q", info.Path, "/dev/null")
	}

	if _, err := GetPortInfo("/dev/doesnotexist"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetPortInfo on missing device: err = %v, expected ErrDeviceNotFound", err)
	}
}

func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		create   bool
		expected string
	}{
		{"normal file", "1234\n", true, "1234"},
		{"file with spaces", "  test value  \n", true, "test value"},
		{"empty file", "", true, ""},
		{"nonexistent file", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "-"))
			if tt.create {
				if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
					t.Fatalf("WriteFile failed: %v", err)
				}
			}
			if got := readSysfsFile(path); got != tt.expected {
				t.Errorf("readSysfsFile = %q, expected %q", got, tt.expected)
			}
		})
	}
}
