package platform

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// linuxAdapter drives iptables for blocking, tc (HTB) for rate limiting,
// /proc/net/arp for the neighbor table, and nl80211 for station signal.
type linuxAdapter struct {
	r      runner
	logger *zap.Logger
}

func newLinuxAdapter(r runner, logger *zap.Logger) *linuxAdapter {
	return &linuxAdapter{r: r, logger: logger}
}

func (a *linuxAdapter) ListInterfaces(_ context.Context) ([]NetInterface, error) {
	return listInterfaces()
}

func (a *linuxAdapter) ListWifiInterfaces(_ context.Context) ([]string, error) {
	ifaces, err := listInterfaces()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, iface := range ifaces {
		// A wireless/ sysfs entry is authoritative; the name heuristic
		// covers drivers that do not expose one.
		if _, err := os.Stat("/sys/class/net/" + iface.Name + "/wireless"); err == nil {
			names = append(names, iface.Name)
		} else if IsWirelessName(iface.Name) {
			names = append(names, iface.Name)
		}
	}
	return names, nil
}

func (a *linuxAdapter) ReadNeighborTable(_ context.Context) map[string]string {
	data, err := os.ReadFile("/proc/net/arp")
	if err != nil {
		a.logger.Debug("failed to read /proc/net/arp", zap.Error(err))
		return map[string]string{}
	}
	return parseLinuxNeighbors(string(data))
}

func (a *linuxAdapter) DefaultRoute(ctx context.Context) (string, string, error) {
	out, err := a.r.output(ctx, "ip", "route", "show", "default")
	if err != nil {
		return "", "", fmt.Errorf("ip route: %w", err)
	}
	gw, dev := parseLinuxRoute(out)
	if gw == "" {
		return "", "", fmt.Errorf("no default route")
	}
	return gw, dev, nil
}

// blockRules returns the iptables rule specs that isolate ip.
func blockRules(ip string) [][]string {
	return [][]string{
		{"INPUT", "-s", ip, "-j", "DROP"},
		{"OUTPUT", "-d", ip, "-j", "DROP"},
		{"FORWARD", "-s", ip, "-j", "DROP"},
		{"FORWARD", "-d", ip, "-j", "DROP"},
	}
}

func (a *linuxAdapter) BlockHost(ctx context.Context, ip string) bool {
	ok := true
	for _, rule := range blockRules(ip) {
		// -C reports whether the rule already exists, keeping -A idempotent.
		if a.r.run(ctx, "iptables", append([]string{"-C"}, rule...)...) == nil {
			continue
		}
		if err := a.r.run(ctx, "iptables", append([]string{"-A"}, rule...)...); err != nil {
			a.logger.Warn("iptables append failed",
				zap.String("ip", ip),
				zap.Strings("rule", rule),
				zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (a *linuxAdapter) UnblockHost(ctx context.Context, ip string) bool {
	for _, rule := range blockRules(ip) {
		if a.r.run(ctx, "iptables", append([]string{"-C"}, rule...)...) != nil {
			continue // rule not present
		}
		if err := a.r.run(ctx, "iptables", append([]string{"-D"}, rule...)...); err != nil {
			a.logger.Warn("iptables delete failed",
				zap.String("ip", ip),
				zap.Strings("rule", rule),
				zap.Error(err))
			return false
		}
	}
	return true
}

func (a *linuxAdapter) LimitHost(ctx context.Context, ip string, kbps int) bool {
	_, dev, err := a.DefaultRoute(ctx)
	if err != nil || dev == "" {
		a.logger.Warn("cannot limit host without a default interface", zap.Error(err))
		return false
	}

	rate := strconv.Itoa(kbps) + "kbit"

	// Rebuild the HTB hierarchy from scratch; an existing root qdisc from a
	// previous limit is replaced, not stacked.
	_ = a.r.run(ctx, "tc", "qdisc", "del", "dev", dev, "root")

	steps := [][]string{
		{"qdisc", "add", "dev", dev, "root", "handle", "1:", "htb", "default", "30"},
		{"class", "add", "dev", dev, "parent", "1:", "classid", "1:1", "htb", "rate", "1000mbit"},
		{"class", "add", "dev", dev, "parent", "1:1", "classid", "1:10", "htb",
			"rate", rate, "ceil", rate, "prio", "1"},
		{"filter", "add", "dev", dev, "parent", "1:0", "protocol", "ip", "prio", "1",
			"u32", "match", "ip", "dst", ip, "flowid", "1:10"},
		{"filter", "add", "dev", dev, "parent", "1:0", "protocol", "ip", "prio", "1",
			"u32", "match", "ip", "src", ip, "flowid", "1:10"},
	}
	for _, args := range steps {
		if err := a.r.run(ctx, "tc", args...); err != nil {
			a.logger.Warn("tc command failed",
				zap.String("ip", ip),
				zap.Strings("args", args),
				zap.Error(err))
			return false
		}
	}
	a.logger.Info("speed limit applied",
		zap.String("ip", ip),
		zap.Int("kbps", kbps),
		zap.String("dev", dev))
	return true
}

func (a *linuxAdapter) ClearLimit(ctx context.Context, ip string) bool {
	_, dev, err := a.DefaultRoute(ctx)
	if err != nil || dev == "" {
		return false
	}
	if err := a.r.run(ctx, "tc", "qdisc", "del", "dev", dev, "root"); err != nil {
		// No qdisc installed means nothing to clear.
		a.logger.Debug("tc qdisc del", zap.String("ip", ip), zap.Error(err))
	}
	return true
}

func (a *linuxAdapter) WifiSignal(_ context.Context, mac string) (int, bool) {
	dbm, err := stationSignal(mac)
	if err != nil {
		a.logger.Debug("station signal unavailable",
			zap.String("mac", mac),
			zap.Error(err))
		return 0, false
	}
	return dbm, true
}
