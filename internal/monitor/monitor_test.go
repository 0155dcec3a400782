package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/internal/platform"
	"github.com/HerbHall/lanward/internal/registry"
	"github.com/HerbHall/lanward/pkg/models"
)

type fakeAdapter struct {
	platform.Adapter
	ifaces []platform.NetInterface
}

func (f *fakeAdapter) ListInterfaces(context.Context) ([]platform.NetInterface, error) {
	return f.ifaces, nil
}

type fakeDiscoverer struct {
	obs    []models.Observation
	calls  atomic.Int64
	panics bool
}

func (f *fakeDiscoverer) Discover(context.Context, platform.NetInterface) []models.Observation {
	f.calls.Add(1)
	if f.panics {
		panic("scan blew up")
	}
	return f.obs
}

type fakeTable struct {
	mu     sync.Mutex
	passes int
	last   []models.Observation
}

func (f *fakeTable) Apply(_ context.Context, obs []models.Observation, _ time.Time) registry.ApplyStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes++
	f.last = obs
	return registry.ApplyStats{Created: len(obs)}
}

func (f *fakeTable) ActiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.last)
}

func (f *fakeTable) passCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passes
}

type fakeEstimator struct{ calls atomic.Int64 }

func (f *fakeEstimator) Update(context.Context, time.Time) { f.calls.Add(1) }

func twoInterfaces() *fakeAdapter {
	return &fakeAdapter{ifaces: []platform.NetInterface{
		{Name: "eth0", IP: "10.0.0.2", CIDR: "10.0.0.0/24"},
		{Name: "wlan0", IP: "192.168.4.2", CIDR: "192.168.4.0/24"},
	}}
}

func newTestScheduler(a *fakeAdapter, d Discoverer, tbl deviceTable, est estimator, iface string) *Scheduler {
	return NewScheduler(a, d, tbl, est, iface, 20*time.Millisecond,
		nil, event.NewBus(zap.NewNop()), zap.NewNop())
}

func TestSchedulerRunsCycles(t *testing.T) {
	disc := &fakeDiscoverer{obs: []models.Observation{{IP: "10.0.0.5"}}}
	table := &fakeTable{}
	est := &fakeEstimator{}
	s := newTestScheduler(twoInterfaces(), disc, table, est, "")

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return table.passCount() >= 2 },
		time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, disc.calls.Load(), int64(4), "both interfaces each cycle")
	assert.GreaterOrEqual(t, est.calls.Load(), int64(2))
}

func TestSchedulerInterfaceFilter(t *testing.T) {
	disc := &fakeDiscoverer{}
	table := &fakeTable{}
	s := newTestScheduler(twoInterfaces(), disc, table, nil, "wlan0")

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return table.passCount() >= 2 },
		time.Second, 10*time.Millisecond)
	// one Discover call per cycle, not two (one extra call may be in flight)
	assert.LessOrEqual(t, disc.calls.Load(), int64(table.passCount()+1))
}

func TestSchedulerStartIdempotent(t *testing.T) {
	disc := &fakeDiscoverer{}
	table := &fakeTable{}
	s := newTestScheduler(twoInterfaces(), disc, table, nil, "")

	s.Start()
	s.Start()
	s.Start()
	assert.True(t, s.Running())
	s.Stop()
	assert.False(t, s.Running())
}

func TestSchedulerStopIsSafeWhenNotRunning(t *testing.T) {
	s := newTestScheduler(twoInterfaces(), &fakeDiscoverer{}, &fakeTable{}, nil, "")
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestSchedulerRestart(t *testing.T) {
	disc := &fakeDiscoverer{}
	table := &fakeTable{}
	s := newTestScheduler(twoInterfaces(), disc, table, nil, "")

	s.Start()
	assert.Eventually(t, func() bool { return table.passCount() >= 1 },
		time.Second, 5*time.Millisecond)
	s.Stop()

	n := table.passCount()
	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return table.passCount() > n },
		time.Second, 5*time.Millisecond)
}

func TestSchedulerSurvivesPanickingCycle(t *testing.T) {
	disc := &fakeDiscoverer{panics: true}
	table := &fakeTable{}
	s := newTestScheduler(twoInterfaces(), disc, table, nil, "")

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return disc.calls.Load() >= 3 },
		time.Second, 10*time.Millisecond, "the loop must keep its schedule after a panic")
}

func TestSchedulerPublishesCycleEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	var cycles atomic.Int64
	bus.Subscribe(event.TopicMonitorCycle, func(_ context.Context, ev event.Event) {
		summary, ok := ev.Payload.(CycleSummary)
		if ok && summary.Interfaces == 2 {
			cycles.Add(1)
		}
	})

	disc := &fakeDiscoverer{obs: []models.Observation{{IP: "10.0.0.5"}}}
	s := NewScheduler(twoInterfaces(), disc, &fakeTable{}, nil, "", 20*time.Millisecond,
		nil, bus, zap.NewNop())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return cycles.Load() >= 1 },
		time.Second, 10*time.Millisecond)
}
