// Package control runs the per-device ARP announcement loops: protect
// keeps a device's view of the gateway truthful, cut disrupts it.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/internal/metrics"
	"github.com/HerbHall/lanward/pkg/models"
)

var (
	// ErrConflict is returned when protect and cut would run against the
	// same device at the same time.
	ErrConflict = errors.New("control: protect and cut are mutually exclusive")
	// ErrNoMAC is returned when the target device has no known MAC.
	ErrNoMAC = errors.New("control: device has no known MAC")
)

// invalidateAfter is the number of consecutive send failures tolerated
// before the cached gateway is assumed stale and re-resolved.
const invalidateAfter = 3

type mode string

const (
	modeProtect mode = "protect"
	modeCut     mode = "cut"
)

// GatewayResolver is the subset of the gateway package the loops need.
type GatewayResolver interface {
	Resolve(ctx context.Context) (models.GatewayInfo, error)
	Invalidate()
}

// deviceRegistry is the registry surface the control engine mutates.
type deviceRegistry interface {
	Get(ip string) (models.Device, bool)
	SetProtected(ip string, protected bool) error
	SetAttackStatus(ip string, status models.AttackStatus) error
}

type loop struct {
	mode   mode
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine owns one announcement loop per controlled device.
type Engine struct {
	announcer Announcer
	gateways  GatewayResolver
	registry  deviceRegistry
	iface     string
	selfMAC   string
	interval  time.Duration
	collect   *metrics.Collectors
	bus       *event.Bus
	logger    *zap.Logger

	mu    sync.Mutex
	loops map[string]*loop
}

func NewEngine(
	announcer Announcer,
	gateways GatewayResolver,
	reg deviceRegistry,
	iface, selfMAC string,
	interval time.Duration,
	collect *metrics.Collectors,
	bus *event.Bus,
	logger *zap.Logger,
) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{
		announcer: announcer,
		gateways:  gateways,
		registry:  reg,
		iface:     iface,
		selfMAC:   models.NormalizeMAC(selfMAC),
		interval:  interval,
		collect:   collect,
		bus:       bus,
		logger:    logger.Named("control"),
	}
}

// Protect starts the corrective loop for ip: both the device and the
// gateway are periodically reminded of each other's true MAC, displacing
// any third-party poisoning. Idempotent while already protecting; a
// running cut is stopped and replaced.
func (e *Engine) Protect(ctx context.Context, ip string) error {
	return e.start(ctx, ip, modeProtect)
}

// Unprotect stops the corrective loop and waits for it to exit. Returns
// false when the device was not being protected.
func (e *Engine) Unprotect(ip string) bool {
	if !e.stop(ip, modeProtect) {
		return false
	}
	if err := e.registry.SetProtected(ip, false); err != nil {
		e.logger.Debug("clear protected flag", zap.String("ip", ip), zap.Error(err))
	}
	return true
}

// Cut starts the disruption loop for ip: the device and the gateway are
// both told the other side lives at this host's MAC, which blackholes
// their traffic. Rejected while the device is protected.
func (e *Engine) Cut(ctx context.Context, ip string) error {
	return e.start(ctx, ip, modeCut)
}

// Restore stops a cut, then sends one corrective announcement pair so the
// device and gateway re-learn each other without waiting for ARP expiry.
// Returns false when the device was not being cut.
func (e *Engine) Restore(ctx context.Context, ip string) bool {
	if !e.stop(ip, modeCut) {
		return false
	}
	if err := e.registry.SetAttackStatus(ip, models.AttackNone); err != nil {
		e.logger.Debug("clear attack status", zap.String("ip", ip), zap.Error(err))
	}

	// Best effort: the cut is over either way.
	d, ok := e.registry.Get(ip)
	if !ok || d.MAC == "" {
		return true
	}
	gw, err := e.gateways.Resolve(ctx)
	if err != nil || gw.MAC == "" {
		e.logger.Warn("skipping corrective announcements, gateway unknown",
			zap.String("ip", ip), zap.Error(err))
		return true
	}
	for _, a := range correctivePair(d, gw) {
		if err := e.announcer.Announce(e.iface, a); err != nil {
			e.logger.Warn("corrective announcement failed",
				zap.String("ip", ip), zap.Error(err))
		}
	}
	return true
}

// StopAll cancels every loop and waits for them. Used at shutdown.
func (e *Engine) StopAll() {
	e.mu.Lock()
	loops := e.loops
	e.loops = nil
	e.mu.Unlock()

	for ip, l := range loops {
		l.cancel()
		<-l.done
		switch l.mode {
		case modeProtect:
			_ = e.registry.SetProtected(ip, false)
		case modeCut:
			_ = e.registry.SetAttackStatus(ip, models.AttackNone)
		}
	}
}

// Active reports the mode currently running for ip, if any.
func (e *Engine) Active(ip string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.loops[ip]
	if !ok {
		return "", false
	}
	return string(l.mode), true
}

func (e *Engine) start(ctx context.Context, ip string, m mode) error {
	d, ok := e.registry.Get(ip)
	if !ok {
		return fmt.Errorf("control: unknown device %s", ip)
	}
	if d.MAC == "" {
		return ErrNoMAC
	}

	// Resolve before taking state so a failure leaves nothing behind.
	gw, err := e.gateways.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("control: resolve gateway: %w", err)
	}
	if gw.MAC == "" {
		return fmt.Errorf("control: gateway %s has no known MAC", gw.IP)
	}

	e.mu.Lock()
	for {
		existing, ok := e.loops[ip]
		if !ok {
			break
		}
		if existing.mode == m {
			e.mu.Unlock()
			return nil
		}
		if m == modeCut {
			e.mu.Unlock()
			return ErrConflict
		}
		// Protection preempts an active cut: stop and join the cut loop,
		// clear its state, then fall through to start protecting.
		delete(e.loops, ip)
		e.mu.Unlock()
		existing.cancel()
		<-existing.done
		if err := e.registry.SetAttackStatus(ip, models.AttackNone); err != nil {
			e.logger.Debug("clear attack status", zap.String("ip", ip), zap.Error(err))
		}
		e.publish(ctx, modeCut, ip, "stopped")
		e.logger.Info("cut preempted by protect", zap.String("ip", ip))
		e.mu.Lock()
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	l := &loop{mode: m, cancel: cancel, done: make(chan struct{})}
	if e.loops == nil {
		e.loops = make(map[string]*loop)
	}
	e.loops[ip] = l
	e.mu.Unlock()

	var regErr error
	switch m {
	case modeProtect:
		regErr = e.registry.SetProtected(ip, true)
	case modeCut:
		regErr = e.registry.SetAttackStatus(ip, models.AttackCutting)
	}
	if regErr != nil {
		e.mu.Lock()
		delete(e.loops, ip)
		e.mu.Unlock()
		cancel()
		close(l.done)
		return regErr
	}

	e.publish(ctx, m, ip, "started")
	e.logger.Info("announcement loop started",
		zap.String("ip", ip),
		zap.String("mode", string(m)),
		zap.String("gateway", gw.IP))

	go e.run(loopCtx, l, ip, d, gw)
	return nil
}

// stop cancels the loop for ip when it runs in mode m, joining it before
// returning. Returns false when no such loop exists.
func (e *Engine) stop(ip string, m mode) bool {
	e.mu.Lock()
	l, ok := e.loops[ip]
	if !ok || l.mode != m {
		e.mu.Unlock()
		return false
	}
	delete(e.loops, ip)
	e.mu.Unlock()

	l.cancel()
	<-l.done
	e.publish(context.Background(), m, ip, "stopped")
	e.logger.Info("announcement loop stopped",
		zap.String("ip", ip),
		zap.String("mode", string(m)))
	return true
}

func (e *Engine) run(ctx context.Context, l *loop, ip string, d models.Device, gw models.GatewayInfo) {
	defer close(l.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var pair [2]Announcement
		switch l.mode {
		case modeProtect:
			pair = correctivePair(d, gw)
		case modeCut:
			pair = disruptivePair(d, gw, e.selfMAC)
		}

		tickFailed := false
		for _, a := range pair {
			if err := e.announcer.Announce(e.iface, a); err != nil {
				tickFailed = true
				if e.collect != nil {
					e.collect.AnnounceFailures.Inc()
				}
				e.logger.Warn("announcement send failed",
					zap.String("ip", ip),
					zap.String("mode", string(l.mode)),
					zap.String("listener", a.ListenerIP),
					zap.Error(err))
			} else if e.collect != nil {
				e.collect.AnnouncesSent.Inc()
			}
		}

		if !tickFailed {
			failures = 0
			continue
		}
		failures++
		if failures < invalidateAfter {
			continue
		}
		// Persistent failures usually mean the gateway moved; drop the
		// cache and pick up the fresh mapping.
		failures = 0
		e.gateways.Invalidate()
		fresh, err := e.gateways.Resolve(ctx)
		if err != nil || fresh.MAC == "" {
			e.logger.Warn("gateway re-resolution failed, keeping previous mapping",
				zap.String("ip", ip), zap.Error(err))
			continue
		}
		gw = fresh
		e.logger.Info("gateway re-resolved",
			zap.String("ip", ip),
			zap.String("gateway", gw.IP),
			zap.String("mac", gw.MAC))
	}
}

// correctivePair tells both sides the truth about each other.
func correctivePair(d models.Device, gw models.GatewayInfo) [2]Announcement {
	return [2]Announcement{
		{ListenerIP: d.IP, ListenerMAC: d.MAC, SpoofedIP: gw.IP, ClaimedMAC: gw.MAC},
		{ListenerIP: gw.IP, ListenerMAC: gw.MAC, SpoofedIP: d.IP, ClaimedMAC: d.MAC},
	}
}

// disruptivePair points both sides at this host.
func disruptivePair(d models.Device, gw models.GatewayInfo, selfMAC string) [2]Announcement {
	return [2]Announcement{
		{ListenerIP: d.IP, ListenerMAC: d.MAC, SpoofedIP: gw.IP, ClaimedMAC: selfMAC},
		{ListenerIP: gw.IP, ListenerMAC: gw.MAC, SpoofedIP: d.IP, ClaimedMAC: selfMAC},
	}
}

func (e *Engine) publish(ctx context.Context, m mode, ip, state string) {
	if e.bus == nil {
		return
	}
	topic := event.TopicControlProtect
	if m == modeCut {
		topic = event.TopicControlCut
	}
	e.bus.Publish(ctx, event.Event{
		Topic:     topic,
		Source:    "control",
		Timestamp: time.Now(),
		Payload:   map[string]string{"ip": ip, "state": state},
	})
}
