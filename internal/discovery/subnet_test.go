package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSubnetSlash30(t *testing.T) {
	_, subnet, err := net.ParseCIDR("192.168.1.0/30")
	require.NoError(t, err)

	hosts := expandSubnet(subnet)
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, hosts)
}

func TestExpandSubnetSlash24Count(t *testing.T) {
	_, subnet, err := net.ParseCIDR("10.0.0.0/24")
	require.NoError(t, err)

	hosts := expandSubnet(subnet)
	assert.Len(t, hosts, 254)
	assert.Equal(t, "10.0.0.1", hosts[0])
	assert.Equal(t, "10.0.0.254", hosts[len(hosts)-1])
}

func TestExpandSubnetTooWide(t *testing.T) {
	_, subnet, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	assert.Nil(t, expandSubnet(subnet))
}

func TestIncrementIPCrossesOctet(t *testing.T) {
	next := incrementIP(net.ParseIP("192.168.0.254"), 2)
	assert.Equal(t, "192.168.1.0", next.String())
}
