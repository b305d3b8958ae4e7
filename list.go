package determ

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortKind groups device nodes by the hardware behind them
type PortKind string

const (
	KindUSB      PortKind = "usb"
	KindStandard PortKind = "standard"
	KindARM      PortKind = "arm"
	KindOther    PortKind = "other"
)

// deviceFamily is one naming scheme the kernel uses for serial drivers
type deviceFamily struct {
	pattern     *regexp.Regexp
	kind        PortKind
	description string
}

func family(prefix string, kind PortKind, description string) deviceFamily {
	return deviceFamily{
		pattern:     regexp.MustCompile(fmt.Sprintf(`^%s\d+$`, prefix)),
		kind:        kind,
		description: description,
	}
}

var (
	devDir = "/dev"

	// Replaced in tests
	detailedPortsList = enumerator.GetDetailedPortsList

	// Virtual consoles and pseudo-terminals never match a family, since
	// every family needs a driver prefix before the unit number.
	deviceFamilies = []deviceFamily{
		family("ttyUSB", KindUSB, "USB serial adapter"),
		family("ttyACM", KindUSB, "USB CDC/ACM device"),
		family("ttyS", KindStandard, "8250/16550 UART"),
		family("ttyAMA", KindARM, "ARM PL011 UART"),
		family("ttymxc", KindARM, "i.MX UART"),
		family("ttyO", KindARM, "OMAP UART"),
		family("ttySAC", KindARM, "Samsung UART"),
		family("ttyTHS", KindARM, "Tegra high-speed UART"),
	}
)

func lookupFamily(name string) (deviceFamily, bool) {
	for _, f := range deviceFamilies {
		if f.pattern.MatchString(name) {
			return f, true
		}
	}
	return deviceFamily{}, false
}

// ListPorts scans devDir for serial character devices and returns their
// paths in lexical order.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", devDir, err)
	}

	var ports []string
	for _, entry := range entries {
		if _, ok := lookupFamily(entry.Name()); !ok {
			continue
		}
		path := filepath.Join(devDir, entry.Name())
		if isCharacterDevice(path) {
			ports = append(ports, path)
		}
	}

	slices.Sort(ports)
	return ports, nil
}

// ListPortsOfKind is ListPorts restricted to kinds. No kinds means every port.
func ListPortsOfKind(kinds ...PortKind) ([]string, error) {
	ports, err := ListPorts()
	if err != nil || len(kinds) == 0 {
		return ports, err
	}

	return slices.DeleteFunc(ports, func(path string) bool {
		return !slices.Contains(kinds, KindOf(filepath.Base(path)))
	}), nil
}

func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// KindOf classifies a device node name such as ttyUSB0
func KindOf(name string) PortKind {
	if f, ok := lookupFamily(name); ok {
		return f.kind
	}
	return KindOther
}

func describe(name string) string {
	if f, ok := lookupFamily(name); ok {
		return f.description
	}
	return "serial device"
}

// PortInfo describes one serial device. The USB fields stay empty for
// on-board UARTs and when the enumerator has nothing to say.
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	Kind         PortKind
	VendorID     string
	ProductID    string
	SerialNumber string
}

// GetPortInfo describes the device at path, asking the enumerator for
// USB ids when the node belongs to a USB family.
func GetPortInfo(path string) (*PortInfo, error) {
	if !isCharacterDevice(path) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}

	name := filepath.Base(path)
	info := &PortInfo{
		Name:        name,
		Path:        path,
		Description: describe(name),
		Kind:        KindOf(name),
	}
	if info.Kind == KindUSB {
		addUSBDetails(info)
	}
	return info, nil
}

func addUSBDetails(info *PortInfo) {
	details, err := detailedPortsList()
	if err != nil {
		return
	}

	i := slices.IndexFunc(details, func(d *enumerator.PortDetails) bool {
		return d.IsUSB && d.Name == info.Path
	})
	if i < 0 {
		return
	}

	d := details[i]
	info.VendorID = strings.ToLower(d.VID)
	info.ProductID = strings.ToLower(d.PID)
	info.SerialNumber = d.SerialNumber
	if d.Product != "" {
		info.Description = d.Product
	}
}
