// Package gateway resolves and caches the default gateway's IP and MAC.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/platform"
	"github.com/HerbHall/lanward/pkg/models"
)

// ErrNoRoute is returned when the host has no default route to resolve a
// gateway from.
var ErrNoRoute = errors.New("gateway: no default route")

// MACProber resolves an IP to a MAC by probing the wire directly. Used as
// a fallback when the kernel neighbor table has no entry for the gateway.
type MACProber interface {
	ProbeMAC(ctx context.Context, ifaceName, ip string) (string, error)
}

// Resolver finds the default gateway and caches the result. The cache is
// kept until Invalidate is called; gateway identity changes only on
// network moves, and the ARP control paths must observe a stable MAC.
type Resolver struct {
	adapter platform.Adapter
	prober  MACProber // may be nil
	logger  *zap.Logger

	mu     sync.Mutex
	cached *models.GatewayInfo
}

func NewResolver(adapter platform.Adapter, prober MACProber, logger *zap.Logger) *Resolver {
	return &Resolver{
		adapter: adapter,
		prober:  prober,
		logger:  logger.Named("gateway"),
	}
}

// Resolve returns the gateway info, from cache when available. The MAC may
// be empty if the gateway was routable but never seen in the neighbor
// table and could not be probed.
func (r *Resolver) Resolve(ctx context.Context) (models.GatewayInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return *r.cached, nil
	}

	gwIP, ifaceName, err := r.adapter.DefaultRoute(ctx)
	if err != nil {
		return models.GatewayInfo{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}

	info := models.GatewayInfo{IP: gwIP}
	if mac, ok := r.adapter.ReadNeighborTable(ctx)[gwIP]; ok {
		info.MAC = mac
	} else if r.prober != nil {
		mac, err := r.prober.ProbeMAC(ctx, ifaceName, gwIP)
		if err != nil {
			r.logger.Debug("gateway MAC probe failed",
				zap.String("gateway", gwIP),
				zap.Error(err))
		} else {
			info.MAC = models.NormalizeMAC(mac)
		}
	}

	if info.MAC == "" {
		r.logger.Warn("gateway resolved without MAC", zap.String("gateway", gwIP))
	} else {
		r.logger.Info("gateway resolved",
			zap.String("gateway", gwIP),
			zap.String("mac", info.MAC))
	}

	// Cache even a MAC-less result so every caller in a cycle does not
	// rerun the probe; Invalidate forces a fresh attempt.
	r.cached = &info
	return info, nil
}

// Invalidate drops the cached gateway so the next Resolve re-queries the
// OS. Called on interface changes and on repeated control-plane send
// failures.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}
