// Package discovery finds devices on the local segment by combining an
// active ARP probe with a passive read of the kernel neighbor table, then
// enriches each sighting with hostname, vendor, and device type.
package discovery

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/platform"
	"github.com/HerbHall/lanward/pkg/models"
)

// dnsTimeout bounds each reverse lookup so one dead resolver cannot stall
// a whole pass.
const dnsTimeout = 500 * time.Millisecond

// VendorLookup resolves a MAC to a manufacturer name, "" when unknown.
type VendorLookup interface {
	Lookup(ctx context.Context, mac string) string
}

// Config tunes one discovery engine.
type Config struct {
	ProbeTimeout time.Duration
	Concurrency  int
	SweepEnabled bool
	SweepTimeout time.Duration
}

// Engine runs discovery passes over one interface at a time.
type Engine struct {
	adapter platform.Adapter
	prober  Prober
	vendors VendorLookup
	sweeper *Sweeper
	logger  *zap.Logger

	// resolver is swappable in tests.
	lookupAddr func(ctx context.Context, ip string) ([]string, error)

	// privilege problems are logged once, not once per cycle
	probeWarnOnce sync.Once
}

func NewEngine(adapter platform.Adapter, prober Prober, vendors VendorLookup, cfg Config, logger *zap.Logger) *Engine {
	log := logger.Named("discovery")
	e := &Engine{
		adapter: adapter,
		prober:  prober,
		vendors: vendors,
		logger:  log,
		lookupAddr: func(ctx context.Context, ip string) ([]string, error) {
			return net.DefaultResolver.LookupAddr(ctx, ip)
		},
	}
	if cfg.SweepEnabled {
		e.sweeper = NewSweeper(cfg.SweepTimeout, cfg.Concurrency, log)
	}
	return e
}

// Discover runs one pass over iface and returns every device sighted.
// It never returns an error: each acquisition path degrades independently
// and a pass that learns nothing yields an empty slice.
func (e *Engine) Discover(ctx context.Context, iface platform.NetInterface) []models.Observation {
	start := time.Now()

	var hosts []string
	if _, subnet, err := net.ParseCIDR(iface.CIDR); err == nil {
		hosts = expandSubnet(subnet)
	} else {
		e.logger.Warn("interface has no usable subnet",
			zap.String("iface", iface.Name),
			zap.String("cidr", iface.CIDR))
	}

	if e.sweeper != nil && len(hosts) > 0 {
		e.sweeper.Sweep(ctx, hosts)
	}

	active := e.activeProbe(ctx, iface.Name, hosts)
	passive := e.adapter.ReadNeighborTable(ctx)

	merged := mergeSightings(active, passive, iface.IP)

	wireless := e.isWireless(ctx, iface.Name)
	observations := make([]models.Observation, 0, len(merged))
	for _, sighting := range merged {
		obs := e.enrich(ctx, sighting, wireless)
		obs.Interface = iface.Name
		observations = append(observations, obs)
	}

	// Stable output order keeps logs and tests deterministic.
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].IP < observations[j].IP
	})

	e.logger.Info("discovery pass complete",
		zap.String("iface", iface.Name),
		zap.Int("active", len(active)),
		zap.Int("passive", len(passive)),
		zap.Int("devices", len(observations)),
		zap.Duration("elapsed", time.Since(start)))
	return observations
}

// activeProbe runs the ARP probe, degrading silently to nothing when the
// prober is unavailable.
func (e *Engine) activeProbe(ctx context.Context, ifaceName string, hosts []string) map[string]string {
	if e.prober == nil || len(hosts) == 0 {
		return nil
	}
	found, err := e.prober.Probe(ctx, ifaceName, hosts)
	if err != nil {
		if errors.Is(err, ErrProbeUnavailable) {
			e.probeWarnOnce.Do(func() {
				e.logger.Warn("active probing unavailable, falling back to passive discovery",
					zap.Error(err))
			})
		} else {
			e.logger.Warn("active probe failed", zap.Error(err))
		}
		return nil
	}
	return found
}

// sighting pairs an address with how it was learned.
type sighting struct {
	ip     string
	mac    string
	source models.ObservationSource
}

// mergeSightings combines both acquisition paths, preferring active
// results when an IP appears in both. The scanning host itself is skipped.
func mergeSightings(active, passive map[string]string, selfIP string) []sighting {
	out := make([]sighting, 0, len(active)+len(passive))
	for ip, mac := range active {
		if ip == selfIP {
			continue
		}
		out = append(out, sighting{ip: ip, mac: models.NormalizeMAC(mac), source: models.SourceActive})
	}
	for ip, mac := range passive {
		if ip == selfIP {
			continue
		}
		if _, seen := active[ip]; seen {
			continue
		}
		out = append(out, sighting{ip: ip, mac: models.NormalizeMAC(mac), source: models.SourcePassive})
	}
	return out
}

func (e *Engine) enrich(ctx context.Context, s sighting, wireless bool) models.Observation {
	obs := models.Observation{
		IP:             s.ip,
		MAC:            s.mac,
		Source:         s.source,
		ConnectionType: models.ConnectionWired,
	}
	if wireless {
		obs.ConnectionType = models.ConnectionWifi
	}

	obs.Hostname = e.reverseDNS(ctx, s.ip)
	if e.vendors != nil && s.mac != "" {
		obs.Vendor = e.vendors.Lookup(ctx, s.mac)
	}
	obs.DeviceType = Classify(obs.Vendor, obs.Hostname)

	if wireless && s.mac != "" {
		if dbm, ok := e.adapter.WifiSignal(ctx, s.mac); ok {
			obs.SignalDBm = &dbm
		}
	}
	return obs
}

func (e *Engine) reverseDNS(ctx context.Context, ip string) string {
	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	names, err := e.lookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	// Trailing dot from the PTR record is noise for display.
	name := names[0]
	if len(name) > 0 && name[len(name)-1] == '.' {
		name = name[:len(name)-1]
	}
	return name
}

// isWireless reports whether ifaceName is one of the platform's WiFi
// interfaces, falling back to the name heuristic.
func (e *Engine) isWireless(ctx context.Context, ifaceName string) bool {
	names, err := e.adapter.ListWifiInterfaces(ctx)
	if err != nil {
		return platform.IsWirelessName(ifaceName)
	}
	for _, name := range names {
		if name == ifaceName {
			return true
		}
	}
	return false
}
