package serialconn

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// portGlobs matches communication-capable serial device nodes; virtual
// terminals and pseudo-terminals never match.
var portGlobs = []string{
	"/dev/ttyUSB*", // USB serial adapters
	"/dev/ttyACM*", // USB CDC/ACM devices
	"/dev/ttyS*",   // standard serial ports
	"/dev/ttyAMA*", // ARM / Raspberry Pi
	"/dev/ttymxc*", // i.MX
	"/dev/ttyO*",   // OMAP
	"/dev/ttySAC*", // Samsung
	"/dev/ttyTHS*", // Tegra
}

// ListPorts returns the available serial ports on the system, sorted.
// Only character devices backed by a real driver (present under
// /sys/class/tty) are reported.
func ListPorts() ([]string, error) {
	var ports []string
	for _, pattern := range portGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, device := range matches {
			if !isCharacterDevice(device) {
				continue
			}
			sysPath := filepath.Join("/sys/class/tty", filepath.Base(device), "device")
			if _, err := os.Stat(sysPath); err == nil {
				ports = append(ports, device)
			}
		}
	}
	sort.Strings(ports)
	return ports, nil
}

func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a discovered serial port. The USB fields are only
// populated for USB-backed devices.
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	VendorID     string
	ProductID    string
	SerialNumber string
	Manufacturer string
	Product      string
}

// GetPortInfo returns information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}
	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: portDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}

	return info, nil
}

// enrichUSBInfo fills in USB metadata from sysfs. The tty's device link
// points into the USB interface; the descriptor files live on an
// ancestor directory, the one holding idVendor.
func enrichUSBInfo(info *PortInfo) {
	base, err := filepath.EvalSymlinks(filepath.Join("/sys/class/tty", info.Name, "device"))
	if err != nil {
		return
	}
	for dir := base; len(dir) > 1; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err != nil {
			continue
		}
		info.VendorID = readSysfsFile(filepath.Join(dir, "idVendor"))
		info.ProductID = readSysfsFile(filepath.Join(dir, "idProduct"))
		info.SerialNumber = readSysfsFile(filepath.Join(dir, "serial"))
		info.Manufacturer = readSysfsFile(filepath.Join(dir, "manufacturer"))
		info.Product = readSysfsFile(filepath.Join(dir, "product"))
		return
	}
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or an
// empty string if it cannot be read.
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// portDescription provides human-readable descriptions for different port types
func portDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
