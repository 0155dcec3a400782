// Package platform implements the per-OS capability backends used by the
// discovery and control layers. Exactly one backend is selected at startup
// via New; callers depend only on the Adapter interface and never branch
// on the operating system themselves.
package platform

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupported is returned when the running OS has no backend.
var ErrUnsupported = errors.New("platform: unsupported operating system")

// NetInterface describes one usable IPv4 interface.
type NetInterface struct {
	Name string
	IP   string
	CIDR string // e.g. "192.168.1.23/24"
	MAC  string
}

// Adapter is the uniform capability surface over OS-native tooling.
// Command-backed operations are synchronous and can take hundreds of
// milliseconds; callers must not invoke them from tight loops.
type Adapter interface {
	// ListInterfaces enumerates up, non-loopback IPv4 interfaces.
	ListInterfaces(ctx context.Context) ([]NetInterface, error)
	// ListWifiInterfaces returns the names of wireless interfaces.
	ListWifiInterfaces(ctx context.Context) ([]string, error)
	// ReadNeighborTable returns the kernel's IP-to-MAC mappings.
	// Returns an empty map (not an error) when unavailable.
	ReadNeighborTable(ctx context.Context) map[string]string
	// DefaultRoute returns the default gateway IP and the egress interface.
	DefaultRoute(ctx context.Context) (gatewayIP, ifaceName string, err error)
	// BlockHost drops all traffic for ip. Idempotent.
	BlockHost(ctx context.Context, ip string) bool
	// UnblockHost removes a block previously applied to ip.
	UnblockHost(ctx context.Context, ip string) bool
	// LimitHost caps traffic to and from ip at kbps. Re-limiting replaces
	// the existing cap.
	LimitHost(ctx context.Context, ip string, kbps int) bool
	// ClearLimit removes any traffic cap for ip.
	ClearLimit(ctx context.Context, ip string) bool
	// WifiSignal reports the signal strength in dBm toward the station
	// with the given MAC, if the platform can observe it.
	WifiSignal(ctx context.Context, mac string) (int, bool)
}

// New selects the backend for the running OS. The dispatch happens once;
// the returned Adapter is safe for concurrent use.
func New(logger *zap.Logger) (Adapter, error) {
	r := &execRunner{}
	switch runtime.GOOS {
	case "linux":
		return newLinuxAdapter(r, logger), nil
	case "darwin":
		return newDarwinAdapter(r, logger), nil
	case "windows":
		return newWindowsAdapter(r, logger), nil
	default:
		return nil, ErrUnsupported
	}
}

// listInterfaces is the shared stdlib enumeration used by every backend.
func listInterfaces() ([]NetInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []NetInterface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			out = append(out, NetInterface{
				Name: iface.Name,
				IP:   ipnet.IP.String(),
				CIDR: ipnet.String(),
				MAC:  strings.ToUpper(iface.HardwareAddr.String()),
			})
			break
		}
	}
	return out, nil
}

// IsWirelessName reports whether an interface name looks like a WiFi
// interface. Used as a fallback when the OS gives no better signal.
func IsWirelessName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "wlan") ||
		strings.HasPrefix(lower, "wifi") ||
		strings.HasPrefix(lower, "wl") ||
		strings.Contains(lower, "wi-fi") ||
		strings.Contains(lower, "wireless")
}
