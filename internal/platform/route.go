package platform

import (
	"bufio"
	"net"
	"strings"
)

// ParseDefaultRoute extracts the default gateway IP and egress interface
// from platform-specific routing table output. Returns empty strings when
// no default route is present. Exported for testing.
func ParseDefaultRoute(output, platform string) (gatewayIP, ifaceName string) {
	switch platform {
	case "linux":
		return parseLinuxRoute(output)
	case "darwin":
		return parseDarwinRoute(output)
	case "windows":
		return parseWindowsRoute(output)
	default:
		return "", ""
	}
}

// parseLinuxRoute parses `ip route show default`.
// Format: default via 192.168.1.1 dev wlan0 proto dhcp metric 600
func parseLinuxRoute(output string) (string, string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] != "default" {
			continue
		}
		var gw, dev string
		for i := 0; i < len(fields)-1; i++ {
			switch fields[i] {
			case "via":
				gw = fields[i+1]
			case "dev":
				dev = fields[i+1]
			}
		}
		if gw != "" {
			return gw, dev
		}
	}
	return "", ""
}

// parseDarwinRoute parses `route -n get default`.
// Relevant lines: "gateway: 192.168.1.1" and "interface: en0".
func parseDarwinRoute(output string) (string, string) {
	var gw, dev string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "gateway:"); ok {
			gw = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "interface:"); ok {
			dev = strings.TrimSpace(v)
		}
	}
	return gw, dev
}

// parseWindowsRoute parses `route print 0.0.0.0`.
// The IPv4 route table lists: 0.0.0.0  0.0.0.0  <gateway>  <interface-ip>  <metric>
func parseWindowsRoute(output string) (string, string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) < 4 || fields[0] != "0.0.0.0" || fields[1] != "0.0.0.0" {
			continue
		}
		if net.ParseIP(fields[2]) == nil {
			continue
		}
		// Windows reports the interface by its IP, not a name.
		return fields[2], fields[3]
	}
	return "", ""
}
