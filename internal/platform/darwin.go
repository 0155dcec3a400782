package platform

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/pkg/models"
)

const airportPath = "/System/Library/PrivateFrameworks/Apple80211.framework/Versions/Current/Resources/airport"

// darwinAdapter drives pfctl tables for blocking, dummynet pipes for rate
// limiting, and `arp -a` for the neighbor table. pf rules are regenerated
// from in-memory state on every change, since pf has no incremental
// per-rule removal.
type darwinAdapter struct {
	r      runner
	logger *zap.Logger

	mu       sync.Mutex
	blocked  map[string]struct{}
	limited  map[string]int // ip -> kbps
	ruleFile string
}

func newDarwinAdapter(r runner, logger *zap.Logger) *darwinAdapter {
	return &darwinAdapter{
		r:        r,
		logger:   logger,
		blocked:  make(map[string]struct{}),
		limited:  make(map[string]int),
		ruleFile: "/tmp/lanward_pf.conf",
	}
}

func (a *darwinAdapter) ListInterfaces(_ context.Context) ([]NetInterface, error) {
	return listInterfaces()
}

func (a *darwinAdapter) ListWifiInterfaces(ctx context.Context) ([]string, error) {
	out, err := a.r.output(ctx, "networksetup", "-listallhardwareports")
	if err != nil {
		return nil, fmt.Errorf("networksetup: %w", err)
	}

	var names []string
	var isWifiPort bool
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "Hardware Port:"); ok {
			port := strings.ToLower(strings.TrimSpace(v))
			isWifiPort = strings.Contains(port, "wi-fi") || strings.Contains(port, "airport")
		} else if v, ok := strings.CutPrefix(line, "Device:"); ok && isWifiPort {
			names = append(names, strings.TrimSpace(v))
		}
	}
	return names, nil
}

func (a *darwinAdapter) ReadNeighborTable(ctx context.Context) map[string]string {
	out, err := a.r.output(ctx, "arp", "-a")
	if err != nil {
		a.logger.Debug("failed to run arp -a", zap.Error(err))
		return map[string]string{}
	}
	return parseDarwinNeighbors(out)
}

func (a *darwinAdapter) DefaultRoute(ctx context.Context) (string, string, error) {
	out, err := a.r.output(ctx, "route", "-n", "get", "default")
	if err != nil {
		return "", "", fmt.Errorf("route get default: %w", err)
	}
	gw, dev := parseDarwinRoute(out)
	if gw == "" {
		return "", "", fmt.Errorf("no default route")
	}
	return gw, dev, nil
}

func (a *darwinAdapter) BlockHost(ctx context.Context, ip string) bool {
	a.mu.Lock()
	a.blocked[ip] = struct{}{}
	a.mu.Unlock()
	return a.reloadRules(ctx)
}

func (a *darwinAdapter) UnblockHost(ctx context.Context, ip string) bool {
	a.mu.Lock()
	delete(a.blocked, ip)
	a.mu.Unlock()
	return a.reloadRules(ctx)
}

func (a *darwinAdapter) LimitHost(ctx context.Context, ip string, kbps int) bool {
	if err := a.r.run(ctx, "dnctl", "pipe", "1", "config", "bw",
		fmt.Sprintf("%dKbit/s", kbps)); err != nil {
		a.logger.Warn("dnctl pipe config failed", zap.String("ip", ip), zap.Error(err))
		return false
	}
	a.mu.Lock()
	a.limited[ip] = kbps
	a.mu.Unlock()
	return a.reloadRules(ctx)
}

func (a *darwinAdapter) ClearLimit(ctx context.Context, ip string) bool {
	a.mu.Lock()
	delete(a.limited, ip)
	empty := len(a.limited) == 0
	a.mu.Unlock()
	if empty {
		_ = a.r.run(ctx, "dnctl", "-q", "flush")
	}
	return a.reloadRules(ctx)
}

// reloadRules regenerates the pf anchor file from current state and loads it.
func (a *darwinAdapter) reloadRules(ctx context.Context) bool {
	a.mu.Lock()
	conf := a.renderRules()
	a.mu.Unlock()

	if err := os.WriteFile(a.ruleFile, []byte(conf), 0o644); err != nil {
		a.logger.Warn("failed to write pf rules", zap.Error(err))
		return false
	}
	if err := a.r.run(ctx, "pfctl", "-f", a.ruleFile); err != nil {
		a.logger.Warn("pfctl load failed", zap.Error(err))
		return false
	}
	// Enabling pf twice is harmless; it errors only when already enabled.
	_ = a.r.run(ctx, "pfctl", "-e")
	return true
}

// renderRules produces the pf config for the current blocked/limited sets.
// Caller holds a.mu.
func (a *darwinAdapter) renderRules() string {
	var b strings.Builder
	if len(a.blocked) > 0 {
		ips := make([]string, 0, len(a.blocked))
		for ip := range a.blocked {
			ips = append(ips, ip)
		}
		sort.Strings(ips)
		fmt.Fprintf(&b, "table <lanward_blocked> { %s }\n", strings.Join(ips, ", "))
		b.WriteString("block return in quick from <lanward_blocked> to any\n")
		b.WriteString("block return out quick from any to <lanward_blocked>\n")
	}
	if len(a.limited) > 0 {
		ips := make([]string, 0, len(a.limited))
		for ip := range a.limited {
			ips = append(ips, ip)
		}
		sort.Strings(ips)
		for _, ip := range ips {
			fmt.Fprintf(&b, "dummynet in quick proto ip from %s to any pipe 1\n", ip)
			fmt.Fprintf(&b, "dummynet out quick proto ip from any to %s pipe 1\n", ip)
		}
	}
	if b.Len() == 0 {
		b.WriteString("# lanward: no active rules\n")
	}
	return b.String()
}

func (a *darwinAdapter) WifiSignal(ctx context.Context, mac string) (int, bool) {
	out, err := a.r.output(ctx, airportPath, "-I")
	if err != nil {
		a.logger.Debug("airport unavailable", zap.Error(err))
		return 0, false
	}

	// airport only reports the AP this host is associated with, so the
	// lookup succeeds solely for the gateway/AP MAC.
	var rssi int
	var haveRSSI bool
	var bssid string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "agrCtlRSSI:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				rssi = n
				haveRSSI = true
			}
		} else if v, ok := strings.CutPrefix(line, "BSSID:"); ok {
			bssid = models.NormalizeMAC(strings.TrimSpace(v))
		}
	}
	if haveRSSI && bssid != "" && bssid == models.NormalizeMAC(mac) {
		return rssi, true
	}
	return 0, false
}
