package client

import (
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// ResolveDeviceID returns a stable identifier for the local machine. It
// tries the platform machine UUID first and falls back to a UUID derived
// from the primary hardware address, so repeated activations from the
// same host resolve to the same device.
func ResolveDeviceID() string {
	var id string
	switch runtime.GOOS {
	case "linux":
		id = linuxMachineID()
	case "darwin":
		id = darwinPlatformUUID()
	case "windows":
		id = windowsProductUUID()
	}
	if id != "" {
		return id
	}
	return fallbackDeviceID()
}

func linuxMachineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	return ""
}

func darwinPlatformUUID() string {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		parts := strings.Split(line, "\"")
		if len(parts) >= 4 {
			return parts[len(parts)-2]
		}
	}
	return ""
}

func windowsProductUUID() string {
	out, err := exec.Command("wmic", "csproduct", "get", "uuid").Output()
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(string(out), "\r", ""), "\n")
	for _, line := range lines[1:] {
		if id := strings.TrimSpace(line); id != "" {
			return id
		}
	}
	return ""
}

// fallbackDeviceID derives a deterministic UUID from the first hardware
// address, or a random one when no interface exposes a MAC.
func fallbackDeviceID() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
				continue
			}
			return uuid.NewSHA1(uuid.NameSpaceOID, iface.HardwareAddr).String()
		}
	}
	return uuid.NewString()
}
