package discovery

import (
	"context"
	"errors"
)

// ErrProbeUnavailable is returned when active probing cannot run, either
// because the platform has no raw-socket backend or because the process
// lacks the required privileges. Discovery degrades to passive-only.
var ErrProbeUnavailable = errors.New("discovery: active probe unavailable")

// Prober sends direct requests on the wire to confirm which hosts are up.
type Prober interface {
	// Probe queries every host and returns an IP-to-MAC map of responders.
	// Partial results with a nil error are valid.
	Probe(ctx context.Context, ifaceName string, hosts []string) (map[string]string, error)
	// ProbeMAC resolves a single IP to its MAC.
	ProbeMAC(ctx context.Context, ifaceName, ip string) (string, error)
}
