package platform

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/pkg/models"
)

// windowsAdapter drives Windows Firewall rules for blocking, NetQosPolicy
// throttling for rate limits, and netsh wlan output for wireless state.
type windowsAdapter struct {
	r      runner
	logger *zap.Logger
}

func newWindowsAdapter(r runner, logger *zap.Logger) *windowsAdapter {
	return &windowsAdapter{r: r, logger: logger}
}

func (a *windowsAdapter) ListInterfaces(_ context.Context) ([]NetInterface, error) {
	return listInterfaces()
}

func (a *windowsAdapter) ListWifiInterfaces(ctx context.Context) ([]string, error) {
	out, err := a.r.output(ctx, "netsh", "wlan", "show", "interfaces")
	if err != nil {
		return nil, fmt.Errorf("netsh wlan: %w", err)
	}
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Name") {
			continue
		}
		if _, v, ok := strings.Cut(line, ":"); ok {
			if name := strings.TrimSpace(v); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (a *windowsAdapter) ReadNeighborTable(ctx context.Context) map[string]string {
	out, err := a.r.output(ctx, "arp", "-a")
	if err != nil {
		a.logger.Debug("failed to run arp -a", zap.Error(err))
		return map[string]string{}
	}
	return parseWindowsNeighbors(out)
}

func (a *windowsAdapter) DefaultRoute(ctx context.Context) (string, string, error) {
	out, err := a.r.output(ctx, "route", "print", "0.0.0.0")
	if err != nil {
		return "", "", fmt.Errorf("route print: %w", err)
	}
	gw, dev := parseWindowsRoute(out)
	if gw == "" {
		return "", "", fmt.Errorf("no default route")
	}
	return gw, dev, nil
}

// ruleName returns the firewall rule name for ip, one pair per host so
// unblock can remove exactly its own rules.
func ruleName(ip string) string {
	return "LANWardBlock-" + ip
}

func (a *windowsAdapter) BlockHost(ctx context.Context, ip string) bool {
	name := ruleName(ip)
	// Re-adding duplicates the rule, so drop any prior pair first.
	_ = a.r.run(ctx, "netsh", "advfirewall", "firewall", "delete", "rule",
		"name="+name)

	ok := true
	for _, dir := range []string{"in", "out"} {
		args := []string{"advfirewall", "firewall", "add", "rule",
			"name=" + name, "dir=" + dir, "action=block", "remoteip=" + ip}
		if err := a.r.run(ctx, "netsh", args...); err != nil {
			a.logger.Warn("firewall rule add failed",
				zap.String("ip", ip),
				zap.String("dir", dir),
				zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (a *windowsAdapter) UnblockHost(ctx context.Context, ip string) bool {
	err := a.r.run(ctx, "netsh", "advfirewall", "firewall", "delete", "rule",
		"name="+ruleName(ip))
	if err != nil {
		// delete fails when no matching rule exists, which counts as unblocked
		a.logger.Debug("firewall rule delete", zap.String("ip", ip), zap.Error(err))
	}
	return true
}

func qosPolicyName(ip string) string {
	return "LANWardLimit-" + ip
}

func (a *windowsAdapter) LimitHost(ctx context.Context, ip string, kbps int) bool {
	name := qosPolicyName(ip)
	script := fmt.Sprintf(
		"Remove-NetQosPolicy -Name '%s' -Confirm:$false -ErrorAction SilentlyContinue; "+
			"New-NetQosPolicy -Name '%s' -IPDstPrefixMatchCondition %s/32 -ThrottleRateActionBitsPerSecond %d",
		name, name, ip, kbps*1000)
	if err := a.r.run(ctx, "powershell", "-NoProfile", "-Command", script); err != nil {
		a.logger.Warn("qos policy create failed",
			zap.String("ip", ip),
			zap.Int("kbps", kbps),
			zap.Error(err))
		return false
	}
	return true
}

func (a *windowsAdapter) ClearLimit(ctx context.Context, ip string) bool {
	script := fmt.Sprintf(
		"Remove-NetQosPolicy -Name '%s' -Confirm:$false -ErrorAction SilentlyContinue",
		qosPolicyName(ip))
	if err := a.r.run(ctx, "powershell", "-NoProfile", "-Command", script); err != nil {
		a.logger.Warn("qos policy remove failed", zap.String("ip", ip), zap.Error(err))
		return false
	}
	return true
}

func (a *windowsAdapter) WifiSignal(ctx context.Context, mac string) (int, bool) {
	out, err := a.r.output(ctx, "netsh", "wlan", "show", "interfaces")
	if err != nil {
		a.logger.Debug("netsh wlan unavailable", zap.Error(err))
		return 0, false
	}

	// netsh reports per-interface blocks; track the BSSID of the current
	// block and match it against the requested MAC (the associated AP).
	want := models.NormalizeMAC(mac)
	var bssid string
	var quality int
	var haveQuality bool
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "BSSID"); ok {
			// The value itself contains colons, so strip only the separator.
			rest = strings.TrimSpace(rest)
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			bssid = models.NormalizeMAC(rest)
		} else if rest, ok := strings.CutPrefix(line, "Signal"); ok {
			rest = strings.TrimSpace(rest)
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			pct, err := strconv.Atoi(strings.TrimSuffix(rest, "%"))
			if err != nil {
				continue
			}
			quality = pct
			haveQuality = true
		}
		if haveQuality && bssid == want {
			return qualityToDBm(quality), true
		}
	}
	return 0, false
}

// qualityToDBm maps netsh's 0-100 signal quality onto the common linear
// approximation of dBm, where 100% is -50 dBm and 0% is -100 dBm.
func qualityToDBm(quality int) int {
	if quality < 0 {
		quality = 0
	} else if quality > 100 {
		quality = 100
	}
	return quality/2 - 100
}
