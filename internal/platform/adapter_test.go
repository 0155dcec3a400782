package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRunner records every invocation and answers from scripted results.
type fakeRunner struct {
	calls   []string
	outputs map[string]string // command prefix -> stdout
	fails   map[string]error  // command prefix -> error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		fails:   make(map[string]error),
	}
}

func (f *fakeRunner) record(name string, args []string) string {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	return cmd
}

func (f *fakeRunner) lookup(cmd string, m map[string]error) error {
	for prefix, err := range m {
		if strings.HasPrefix(cmd, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeRunner) output(_ context.Context, name string, args ...string) (string, error) {
	cmd := f.record(name, args)
	if err := f.lookup(cmd, f.fails); err != nil {
		return "", err
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(cmd, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) error {
	_, err := f.output(ctx, name, args...)
	return err
}

func (f *fakeRunner) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) countCalls(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestLinuxBlockHostSkipsExistingRules(t *testing.T) {
	r := newFakeRunner()
	// every -C check succeeds: all rules already present
	a := newLinuxAdapter(r, zap.NewNop())

	assert.True(t, a.BlockHost(context.Background(), "192.168.1.50"))
	assert.Equal(t, 4, r.countCalls("iptables -C"))
	assert.Zero(t, r.countCalls("iptables -A"), "existing rules must not be re-appended")
}

func TestLinuxBlockHostAppendsMissingRules(t *testing.T) {
	r := newFakeRunner()
	r.fails["iptables -C"] = errors.New("rule not found")
	a := newLinuxAdapter(r, zap.NewNop())

	assert.True(t, a.BlockHost(context.Background(), "192.168.1.50"))
	assert.Equal(t, 4, r.countCalls("iptables -A"))
}

func TestLinuxUnblockHostRemovesOnlyPresentRules(t *testing.T) {
	r := newFakeRunner()
	a := newLinuxAdapter(r, zap.NewNop())

	assert.True(t, a.UnblockHost(context.Background(), "192.168.1.50"))
	assert.Equal(t, 4, r.countCalls("iptables -D"))

	r2 := newFakeRunner()
	r2.fails["iptables -C"] = errors.New("rule not found")
	a2 := newLinuxAdapter(r2, zap.NewNop())
	assert.True(t, a2.UnblockHost(context.Background(), "192.168.1.50"))
	assert.Zero(t, r2.countCalls("iptables -D"))
}

func TestLinuxLimitHostBuildsHTB(t *testing.T) {
	r := newFakeRunner()
	r.outputs["ip route show default"] = "default via 192.168.1.1 dev eth0\n"
	a := newLinuxAdapter(r, zap.NewNop())

	require.True(t, a.LimitHost(context.Background(), "192.168.1.50", 5000))
	assert.True(t, r.called("tc qdisc del dev eth0 root"))
	assert.True(t, r.called("tc qdisc add dev eth0 root handle 1: htb"))
	assert.True(t, r.called("tc class add dev eth0 parent 1:1 classid 1:10 htb rate 5000kbit ceil 5000kbit"))
	assert.Equal(t, 2, r.countCalls("tc filter add"), "expected one filter per direction")
}

func TestLinuxLimitHostFailsWithoutRoute(t *testing.T) {
	r := newFakeRunner()
	r.fails["ip route"] = errors.New("exit status 1")
	a := newLinuxAdapter(r, zap.NewNop())

	assert.False(t, a.LimitHost(context.Background(), "192.168.1.50", 5000))
	assert.False(t, r.called("tc"))
}

func TestLinuxDefaultRoute(t *testing.T) {
	r := newFakeRunner()
	r.outputs["ip route show default"] = "default via 192.168.1.1 dev wlan0 proto dhcp\n"
	a := newLinuxAdapter(r, zap.NewNop())

	gw, dev, err := a.DefaultRoute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", gw)
	assert.Equal(t, "wlan0", dev)
}

func TestDarwinBlockRulesAccumulate(t *testing.T) {
	r := newFakeRunner()
	a := newDarwinAdapter(r, zap.NewNop())
	a.ruleFile = filepath.Join(t.TempDir(), "pf.conf")
	ctx := context.Background()

	require.True(t, a.BlockHost(ctx, "10.0.0.5"))
	require.True(t, a.BlockHost(ctx, "10.0.0.9"))

	conf, err := os.ReadFile(a.ruleFile)
	require.NoError(t, err)
	assert.Contains(t, string(conf), "table <lanward_blocked> { 10.0.0.5, 10.0.0.9 }")
	assert.Contains(t, string(conf), "block return in quick from <lanward_blocked>")
	assert.True(t, r.called("pfctl -f "+a.ruleFile))

	require.True(t, a.UnblockHost(ctx, "10.0.0.5"))
	conf, err = os.ReadFile(a.ruleFile)
	require.NoError(t, err)
	assert.NotContains(t, string(conf), "10.0.0.5")
	assert.Contains(t, string(conf), "10.0.0.9")
}

func TestDarwinLimitHostConfiguresPipe(t *testing.T) {
	r := newFakeRunner()
	a := newDarwinAdapter(r, zap.NewNop())
	a.ruleFile = filepath.Join(t.TempDir(), "pf.conf")
	ctx := context.Background()

	require.True(t, a.LimitHost(ctx, "10.0.0.5", 2048))
	assert.True(t, r.called("dnctl pipe 1 config bw 2048Kbit/s"))

	conf, err := os.ReadFile(a.ruleFile)
	require.NoError(t, err)
	assert.Contains(t, string(conf), "dummynet in quick proto ip from 10.0.0.5 to any pipe 1")

	require.True(t, a.ClearLimit(ctx, "10.0.0.5"))
	assert.True(t, r.called("dnctl -q flush"))
	conf, err = os.ReadFile(a.ruleFile)
	require.NoError(t, err)
	assert.NotContains(t, string(conf), "dummynet")
}

func TestDarwinListWifiInterfaces(t *testing.T) {
	r := newFakeRunner()
	r.outputs["networksetup -listallhardwareports"] = `
Hardware Port: Ethernet
Device: en1
Ethernet Address: 00:11:22:33:44:55

Hardware Port: Wi-Fi
Device: en0
Ethernet Address: aa:bb:cc:dd:ee:ff
`
	a := newDarwinAdapter(r, zap.NewNop())

	names, err := a.ListWifiInterfaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"en0"}, names)
}

func TestWindowsBlockAndUnblock(t *testing.T) {
	r := newFakeRunner()
	a := newWindowsAdapter(r, zap.NewNop())
	ctx := context.Background()

	require.True(t, a.BlockHost(ctx, "192.168.1.50"))
	assert.True(t, r.called(`netsh advfirewall firewall add rule name=LANWardBlock-192.168.1.50 dir=in action=block remoteip=192.168.1.50`))
	assert.True(t, r.called(`netsh advfirewall firewall add rule name=LANWardBlock-192.168.1.50 dir=out`))

	require.True(t, a.UnblockHost(ctx, "192.168.1.50"))
	assert.True(t, r.called(`netsh advfirewall firewall delete rule name=LANWardBlock-192.168.1.50`))
}

func TestWindowsLimitHostUsesQosPolicy(t *testing.T) {
	r := newFakeRunner()
	a := newWindowsAdapter(r, zap.NewNop())
	ctx := context.Background()

	require.True(t, a.LimitHost(ctx, "192.168.1.50", 1024))
	var script string
	for _, c := range r.calls {
		if strings.HasPrefix(c, "powershell") {
			script = c
		}
	}
	assert.Contains(t, script, "New-NetQosPolicy -Name 'LANWardLimit-192.168.1.50'")
	assert.Contains(t, script, "-ThrottleRateActionBitsPerSecond 1024000")

	require.True(t, a.ClearLimit(ctx, "192.168.1.50"))
	assert.True(t, r.called("powershell -NoProfile -Command Remove-NetQosPolicy -Name 'LANWardLimit-192.168.1.50'"))
}

func TestWindowsWifiSignal(t *testing.T) {
	r := newFakeRunner()
	r.outputs["netsh wlan show interfaces"] = `
There is 1 interface on the system:

    Name                   : Wi-Fi
    State                  : connected
    BSSID                  : aa:bb:cc:dd:ee:ff
    Signal                 : 80%
`
	a := newWindowsAdapter(r, zap.NewNop())

	dbm, ok := a.WifiSignal(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.True(t, ok)
	assert.Equal(t, -60, dbm)

	_, ok = a.WifiSignal(context.Background(), "11:22:33:44:55:66")
	assert.False(t, ok, "signal is only observable for the associated AP")
}

func TestQualityToDBm(t *testing.T) {
	assert.Equal(t, -100, qualityToDBm(0))
	assert.Equal(t, -75, qualityToDBm(50))
	assert.Equal(t, -50, qualityToDBm(100))
	assert.Equal(t, -50, qualityToDBm(130), "quality is clamped to 100")
}

func TestIsWirelessName(t *testing.T) {
	assert.True(t, IsWirelessName("wlan0"))
	assert.True(t, IsWirelessName("wlp3s0"))
	assert.True(t, IsWirelessName("Wi-Fi"))
	assert.False(t, IsWirelessName("eth0"))
	assert.False(t, IsWirelessName("en0"))
}
