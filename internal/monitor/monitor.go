// Package monitor drives the periodic discovery cycle.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/internal/metrics"
	"github.com/HerbHall/lanward/internal/platform"
	"github.com/HerbHall/lanward/internal/registry"
	"github.com/HerbHall/lanward/pkg/models"
)

// Discoverer runs one discovery pass over an interface.
type Discoverer interface {
	Discover(ctx context.Context, iface platform.NetInterface) []models.Observation
}

// deviceTable is the registry surface the scheduler feeds.
type deviceTable interface {
	Apply(ctx context.Context, observations []models.Observation, now time.Time) registry.ApplyStats
	ActiveCount() int
}

// estimator refreshes bandwidth figures once per cycle.
type estimator interface {
	Update(ctx context.Context, now time.Time)
}

// CycleSummary is the payload published after each cycle.
type CycleSummary struct {
	Interfaces int
	Observed   int
	Created    int
	Aged       int
	Elapsed    time.Duration
}

// Scheduler runs the discover/apply/estimate cycle on a fixed interval.
type Scheduler struct {
	adapter   platform.Adapter
	disc      Discoverer
	table     deviceTable
	est       estimator
	ifaceName string // restrict to one interface when non-empty
	interval  time.Duration
	collect   *metrics.Collectors
	bus       *event.Bus
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(
	adapter platform.Adapter,
	disc Discoverer,
	table deviceTable,
	est estimator,
	ifaceName string,
	interval time.Duration,
	collect *metrics.Collectors,
	bus *event.Bus,
	logger *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		adapter:   adapter,
		disc:      disc,
		table:     table,
		est:       est,
		ifaceName: ifaceName,
		interval:  interval,
		collect:   collect,
		bus:       bus,
		logger:    logger.Named("monitor"),
	}
}

// Start launches the cycle loop. Calling Start on a running scheduler is
// a no-op. The first cycle runs immediately rather than one interval in.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(stopCh)
	s.logger.Info("monitoring started", zap.Duration("interval", s.interval))
}

// Stop signals the loop and waits for the in-flight cycle to finish.
// Safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("monitoring stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(stopCh)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runCycle(stopCh)
		}
	}
}

// runCycle executes one discover/apply/estimate pass. A panic anywhere in
// the cycle is logged and the loop keeps its schedule.
func (s *Scheduler) runCycle(stopCh chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("monitor cycle panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()

	ifaces, err := s.adapter.ListInterfaces(ctx)
	if err != nil {
		s.logger.Warn("failed to enumerate interfaces", zap.Error(err))
		return
	}

	var observations []models.Observation
	scanned := 0
	for _, iface := range ifaces {
		if s.ifaceName != "" && iface.Name != s.ifaceName {
			continue
		}
		scanned++
		observations = append(observations, s.disc.Discover(ctx, iface)...)
		if ctx.Err() != nil {
			return
		}
	}
	if scanned == 0 {
		s.logger.Warn("no interfaces matched", zap.String("iface", s.ifaceName))
		return
	}

	now := time.Now()
	stats := s.table.Apply(ctx, observations, now)
	if s.est != nil {
		s.est.Update(ctx, now)
	}

	if s.collect != nil {
		s.collect.DiscoveryPasses.Inc()
		s.collect.DevicesDiscovered.Add(float64(len(observations)))
		s.collect.StaleTransitions.Add(float64(stats.Aged))
		s.collect.ActiveDevices.Set(float64(s.table.ActiveCount()))
	}
	if s.bus != nil {
		s.bus.Publish(ctx, event.Event{
			Topic:     event.TopicMonitorCycle,
			Source:    "monitor",
			Timestamp: now,
			Payload: CycleSummary{
				Interfaces: scanned,
				Observed:   len(observations),
				Created:    stats.Created,
				Aged:       stats.Aged,
				Elapsed:    time.Since(start),
			},
		})
	}
}
