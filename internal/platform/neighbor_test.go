package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLinuxNeighbors(t *testing.T) {
	output := `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        wlan0
192.168.1.50     0x1         0x2         11:22:33:44:55:66     *        wlan0
192.168.1.99     0x1         0x0         00:00:00:00:00:00     *        wlan0
`
	table := ParseNeighborOutput(output, "linux")

	assert.Len(t, table, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", table["192.168.1.1"])
	assert.Equal(t, "11:22:33:44:55:66", table["192.168.1.50"])
	assert.NotContains(t, table, "192.168.1.99", "incomplete entries must be skipped")
}

func TestParseWindowsNeighbors(t *testing.T) {
	output := `
Interface: 192.168.1.23 --- 0xb
  Internet Address      Physical Address      Type
  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
  192.168.1.50          11-22-33-44-55-66     dynamic
  192.168.1.255         ff-ff-ff-ff-ff-ff     static
  224.0.0.22            01-00-5e-00-00-16     static
`
	table := ParseNeighborOutput(output, "windows")

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", table["192.168.1.1"])
	assert.Equal(t, "11:22:33:44:55:66", table["192.168.1.50"])
	assert.NotContains(t, table, "192.168.1.255", "broadcast entries must be skipped")
}

func TestParseDarwinNeighbors(t *testing.T) {
	output := `router.lan (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
? (192.168.1.50) at 11:22:33:44:55:66 on en0 ifscope [ethernet]
? (192.168.1.77) at (incomplete) on en0 ifscope [ethernet]
`
	table := ParseNeighborOutput(output, "darwin")

	assert.Len(t, table, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", table["192.168.1.1"])
	assert.Equal(t, "11:22:33:44:55:66", table["192.168.1.50"])
}

func TestParseNeighborOutputUnknownPlatform(t *testing.T) {
	table := ParseNeighborOutput("anything", "plan9")
	assert.Empty(t, table)
}

func TestParseNeighborOutputEmpty(t *testing.T) {
	for _, platform := range []string{"linux", "darwin", "windows"} {
		assert.Empty(t, ParseNeighborOutput("", platform), platform)
	}
}
