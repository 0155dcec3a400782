//go:build linux

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/mdlayher/arp"
	"go.uber.org/zap"

	"github.com/HerbHall/lanward/pkg/models"
)

// arpProber resolves hosts over raw ARP. Each worker opens its own packet
// socket; the arp client is not safe for interleaved resolves.
type arpProber struct {
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewProber returns the ARP-based prober. Requires CAP_NET_RAW.
func NewProber(timeout time.Duration, concurrency int, logger *zap.Logger) Prober {
	if concurrency < 1 {
		concurrency = 1
	}
	return &arpProber{
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger.Named("probe"),
	}
}

func (p *arpProber) Probe(ctx context.Context, ifaceName string, hosts []string) (map[string]string, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", ifaceName, err)
	}

	// One dial up front detects missing privileges without spinning up
	// the whole pool.
	c, err := arp.Dial(ifi)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
		}
		return nil, fmt.Errorf("open arp client: %w", err)
	}
	c.Close()

	found := make(map[string]string)
	var mu sync.Mutex

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer func() { <-sem }()

			mac, err := p.resolve(ifi, host)
			if err != nil {
				return // no response means no device
			}
			mu.Lock()
			found[host] = mac
			mu.Unlock()
		}(host)
	}
	wg.Wait()
	return found, nil
}

func (p *arpProber) ProbeMAC(_ context.Context, ifaceName, ip string) (string, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return "", fmt.Errorf("interface %s: %w", ifaceName, err)
	}
	return p.resolve(ifi, ip)
}

func (p *arpProber) resolve(ifi *net.Interface, ip string) (string, error) {
	c, err := arp.Dial(ifi)
	if err != nil {
		return "", fmt.Errorf("open arp client: %w", err)
	}
	defer c.Close()

	if err := c.SetDeadline(time.Now().Add(p.timeout)); err != nil {
		return "", err
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ip, err)
	}
	hw, err := c.Resolve(addr)
	if err != nil {
		return "", err
	}
	return models.NormalizeMAC(hw.String()), nil
}
