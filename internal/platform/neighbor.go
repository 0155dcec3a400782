package platform

import (
	"bufio"
	"strings"

	"github.com/HerbHall/lanward/pkg/models"
)

const (
	macIncomplete = "00:00:00:00:00:00"
	macBroadcast  = "FF:FF:FF:FF:FF:FF"
)

// ParseNeighborOutput parses platform-specific neighbor table output into
// an IP-to-MAC map. Incomplete and broadcast entries are discarded and
// MACs are canonicalized. Exported for testing.
func ParseNeighborOutput(output, platform string) map[string]string {
	switch platform {
	case "linux":
		return parseLinuxNeighbors(output)
	case "windows":
		return parseWindowsNeighbors(output)
	case "darwin":
		return parseDarwinNeighbors(output)
	default:
		return map[string]string{}
	}
}

// parseLinuxNeighbors parses /proc/net/arp.
// Format: IP address  HW type  Flags  HW address  Mask  Device
func parseLinuxNeighbors(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		mac := models.NormalizeMAC(fields[3])
		if mac == macIncomplete || mac == macBroadcast {
			continue
		}
		table[fields[0]] = mac
	}
	return table
}

// parseWindowsNeighbors parses `arp -a` output.
// Entry lines look like: 192.168.1.1  aa-bb-cc-dd-ee-ff  dynamic
func parseWindowsNeighbors(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) < 3 {
			continue
		}
		ip := fields[0]
		if ip == "" || ip[0] < '0' || ip[0] > '9' {
			continue
		}
		mac := models.NormalizeMAC(fields[1])
		if mac == macIncomplete || mac == macBroadcast {
			continue
		}
		table[ip] = mac
	}
	return table
}

// parseDarwinNeighbors parses `arp -a` output.
// Format: hostname (ip) at mac on iface [...]
func parseDarwinNeighbors(output string) map[string]string {
	table := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		parenStart := strings.Index(line, "(")
		parenEnd := strings.Index(line, ")")
		if parenStart < 0 || parenEnd < 0 || parenEnd <= parenStart {
			continue
		}
		ip := line[parenStart+1 : parenEnd]

		atIdx := strings.Index(line[parenEnd:], " at ")
		if atIdx < 0 {
			continue
		}
		rest := line[parenEnd+atIdx+4:]
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		mac := models.NormalizeMAC(fields[0])
		if mac == "(INCOMPLETE)" || mac == macBroadcast || mac == macIncomplete {
			continue
		}
		table[ip] = mac
	}
	return table
}
