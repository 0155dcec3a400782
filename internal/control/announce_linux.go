//go:build linux

package control

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/mdlayher/arp"
)

// arpAnnouncer writes ARP replies through a raw packet socket. A fresh
// client per send keeps the announcer stateless; at one announcement pair
// per second the socket setup cost is irrelevant.
type arpAnnouncer struct{}

// NewAnnouncer returns the raw ARP announcer. Requires CAP_NET_RAW.
func NewAnnouncer() Announcer {
	return arpAnnouncer{}
}

func (arpAnnouncer) Announce(ifaceName string, a Announcement) error {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return fmt.Errorf("interface %s: %w", ifaceName, err)
	}

	claimedMAC, err := net.ParseMAC(a.ClaimedMAC)
	if err != nil {
		return fmt.Errorf("claimed mac %q: %w", a.ClaimedMAC, err)
	}
	listenerMAC, err := net.ParseMAC(a.ListenerMAC)
	if err != nil {
		return fmt.Errorf("listener mac %q: %w", a.ListenerMAC, err)
	}
	spoofedIP, err := netip.ParseAddr(a.SpoofedIP)
	if err != nil {
		return fmt.Errorf("spoofed ip %q: %w", a.SpoofedIP, err)
	}
	listenerIP, err := netip.ParseAddr(a.ListenerIP)
	if err != nil {
		return fmt.Errorf("listener ip %q: %w", a.ListenerIP, err)
	}

	c, err := arp.Dial(ifi)
	if err != nil {
		return fmt.Errorf("open arp client: %w", err)
	}
	defer c.Close()

	pkt, err := arp.NewPacket(arp.OperationReply, claimedMAC, spoofedIP, listenerMAC, listenerIP)
	if err != nil {
		return fmt.Errorf("build reply: %w", err)
	}
	if err := c.WriteTo(pkt, listenerMAC); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
