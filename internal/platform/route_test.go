package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLinuxRoute(t *testing.T) {
	output := "default via 192.168.1.1 dev wlan0 proto dhcp metric 600\n"
	gw, dev := ParseDefaultRoute(output, "linux")
	assert.Equal(t, "192.168.1.1", gw)
	assert.Equal(t, "wlan0", dev)
}

func TestParseLinuxRouteNoDefault(t *testing.T) {
	gw, dev := ParseDefaultRoute("192.168.1.0/24 dev wlan0 proto kernel\n", "linux")
	assert.Empty(t, gw)
	assert.Empty(t, dev)
}

func TestParseDarwinRoute(t *testing.T) {
	output := `   route to: default
destination: default
       mask: default
    gateway: 10.0.0.1
  interface: en0
      flags: <UP,GATEWAY,DONE,STATIC,PRCLONING,GLOBAL>
`
	gw, dev := ParseDefaultRoute(output, "darwin")
	assert.Equal(t, "10.0.0.1", gw)
	assert.Equal(t, "en0", dev)
}

func TestParseWindowsRoute(t *testing.T) {
	output := `===========================================================================
Active Routes:
Network Destination        Netmask          Gateway       Interface  Metric
          0.0.0.0          0.0.0.0      192.168.1.1     192.168.1.23     35
===========================================================================
`
	gw, dev := ParseDefaultRoute(output, "windows")
	assert.Equal(t, "192.168.1.1", gw)
	assert.Equal(t, "192.168.1.23", dev, "Windows names the interface by its IP")
}

func TestParseDefaultRouteUnknownPlatform(t *testing.T) {
	gw, dev := ParseDefaultRoute("default via 1.2.3.4 dev eth0", "plan9")
	assert.Empty(t, gw)
	assert.Empty(t, dev)
}
