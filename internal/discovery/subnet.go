package discovery

import "net"

// expandSubnet returns all host IPs in a subnet, excluding the network and
// broadcast addresses. Subnets wider than /16 return nil to prevent
// accidental huge scans.
func expandSubnet(subnet *net.IPNet) []string {
	ones, bits := subnet.Mask.Size()
	if ones == 0 && bits == 0 {
		return nil
	}
	hostBits := bits - ones
	if hostBits > 16 {
		return nil
	}

	totalHosts := 1 << hostBits
	var hosts []string
	for i := 1; i < totalHosts-1; i++ {
		next := incrementIP(subnet.IP, i)
		if next != nil && subnet.Contains(next) {
			hosts = append(hosts, next.String())
		}
	}
	return hosts
}

// incrementIP adds offset to a base IPv4 address.
func incrementIP(base net.IP, offset int) net.IP {
	ip := base.To4()
	if ip == nil {
		return nil
	}
	out := make(net.IP, 4)
	copy(out, ip)

	carry := offset
	for i := 3; i >= 0 && carry > 0; i-- {
		sum := int(out[i]) + carry
		out[i] = byte(sum & 0xff)
		carry = sum >> 8
	}
	return out
}
