// Package engine is the process boundary: it wires discovery, the
// registry, access control, and the monitor together and exposes the
// operations an embedding surface (CLI, API) calls. No operation lets a
// panic escape.
package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/bandwidth"
	"github.com/HerbHall/lanward/internal/config"
	"github.com/HerbHall/lanward/internal/control"
	"github.com/HerbHall/lanward/internal/discovery"
	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/internal/gateway"
	"github.com/HerbHall/lanward/internal/metrics"
	"github.com/HerbHall/lanward/internal/monitor"
	"github.com/HerbHall/lanward/internal/platform"
	"github.com/HerbHall/lanward/internal/registry"
	"github.com/HerbHall/lanward/internal/vendor"
	"github.com/HerbHall/lanward/pkg/models"
)

// ErrCommandFailed is returned when a platform enforcement command did
// not take effect.
var ErrCommandFailed = fmt.Errorf("engine: platform command failed")

// deviceControl is the loop-management surface the facade drives.
type deviceControl interface {
	Protect(ctx context.Context, ip string) error
	Unprotect(ip string) bool
	Cut(ctx context.Context, ip string) error
	Restore(ctx context.Context, ip string) bool
	StopAll()
}

// scheduler is the monitoring surface the facade drives.
type scheduler interface {
	Start()
	Stop()
	Running() bool
}

// Engine is the boundary facade over the whole core.
type Engine struct {
	adapter  platform.Adapter
	registry *registry.Registry
	gateways *gateway.Resolver
	control  deviceControl
	sched    scheduler
	bus      *event.Bus
	collect  *metrics.Collectors
	logger   *zap.Logger
}

// New builds a fully wired engine from configuration. The returned engine
// is idle; call StartMonitoring to begin discovery cycles.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	adapter, err := platform.New(logger)
	if err != nil {
		return nil, err
	}

	iface, err := selectInterface(adapter, cfg.Interface)
	if err != nil {
		return nil, err
	}
	logger.Info("monitoring interface selected",
		zap.String("iface", iface.Name),
		zap.String("ip", iface.IP),
		zap.String("cidr", iface.CIDR))

	bus := event.NewBus(logger)
	collect := metrics.New(prometheus.DefaultRegisterer)

	vendors := vendor.New(logger,
		vendor.WithRemoteLookup(cfg.Vendor.RemoteEnabled),
		vendor.WithHTTPClient(&http.Client{Timeout: cfg.Vendor.RemoteTimeout}))

	prober := discovery.NewProber(cfg.Discovery.ProbeTimeout, cfg.Discovery.Concurrency, logger)
	disc := discovery.NewEngine(adapter, prober, vendors, discovery.Config{
		ProbeTimeout: cfg.Discovery.ProbeTimeout,
		Concurrency:  cfg.Discovery.Concurrency,
		SweepEnabled: cfg.Discovery.SweepEnabled,
		SweepTimeout: cfg.Discovery.SweepTimeout,
	}, logger)

	reg := registry.New(cfg.Monitor.StalenessWindow, bus, logger)
	gateways := gateway.NewResolver(adapter, prober, logger)
	ctl := control.NewEngine(control.NewAnnouncer(), gateways, reg,
		iface.Name, iface.MAC, cfg.Control.AnnounceInterval, collect, bus, logger)
	est := bandwidth.New(reg, collect, logger)
	sched := monitor.NewScheduler(adapter, disc, reg, est,
		cfg.Interface, cfg.Monitor.Interval, collect, bus, logger)

	return &Engine{
		adapter:  adapter,
		registry: reg,
		gateways: gateways,
		control:  ctl,
		sched:    sched,
		bus:      bus,
		collect:  collect,
		logger:   logger.Named("engine"),
	}, nil
}

// selectInterface resolves the configured interface name, or picks the
// first usable one when the name is empty.
func selectInterface(adapter platform.Adapter, name string) (platform.NetInterface, error) {
	ifaces, err := adapter.ListInterfaces(context.Background())
	if err != nil {
		return platform.NetInterface{}, fmt.Errorf("enumerate interfaces: %w", err)
	}
	if len(ifaces) == 0 {
		return platform.NetInterface{}, fmt.Errorf("no usable network interface")
	}
	if name == "" {
		return ifaces[0], nil
	}
	for _, iface := range ifaces {
		if iface.Name == name {
			return iface, nil
		}
	}
	return platform.NetInterface{}, fmt.Errorf("interface %q not found", name)
}

// Bus exposes the event bus for embedding surfaces to subscribe on.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// StartMonitoring begins the periodic discovery cycle. Idempotent.
func (e *Engine) StartMonitoring() {
	e.sched.Start()
}

// StopMonitoring halts the cycle, waiting for any in-flight pass.
func (e *Engine) StopMonitoring() {
	e.sched.Stop()
}

// Monitoring reports whether the cycle loop is running.
func (e *Engine) Monitoring() bool {
	return e.sched.Running()
}

// Close stops everything: the monitor loop and all control loops.
func (e *Engine) Close() {
	e.sched.Stop()
	e.control.StopAll()
}

// ListDevices returns the known devices, optionally restricted to one
// interface.
func (e *Engine) ListDevices(ifaceFilter string) []models.Device {
	return e.registry.List(ifaceFilter)
}

// GetDevice returns one device by IP.
func (e *Engine) GetDevice(ip string) (models.Device, error) {
	d, ok := e.registry.Get(ip)
	if !ok {
		return models.Device{}, registry.ErrNotFound
	}
	return d, nil
}

// NetworkSummary aggregates the registry.
func (e *Engine) NetworkSummary() models.NetworkSummary {
	return e.registry.Summary()
}

// Gateway resolves the default gateway.
func (e *Engine) Gateway(ctx context.Context) (models.GatewayInfo, error) {
	return e.gateways.Resolve(ctx)
}

// SetSpeedLimit caps a device's bandwidth. The registry is updated only
// after the platform rule takes effect.
func (e *Engine) SetSpeedLimit(ctx context.Context, ip string, mbps float64) (err error) {
	defer e.guard("set_speed_limit", &err)

	if mbps <= 0 {
		return fmt.Errorf("engine: speed limit must be positive, got %v", mbps)
	}
	if _, ok := e.registry.Get(ip); !ok {
		return registry.ErrNotFound
	}
	kbps := int(mbps * 1000)
	if !e.adapter.LimitHost(ctx, ip, kbps) {
		e.countControlFailure()
		return fmt.Errorf("%w: limit %s to %d kbps", ErrCommandFailed, ip, kbps)
	}
	return e.registry.SetSpeedLimit(ip, mbps)
}

// ClearSpeedLimit removes a device's bandwidth cap.
func (e *Engine) ClearSpeedLimit(ctx context.Context, ip string) (err error) {
	defer e.guard("clear_speed_limit", &err)

	if _, ok := e.registry.Get(ip); !ok {
		return registry.ErrNotFound
	}
	if !e.adapter.ClearLimit(ctx, ip) {
		e.countControlFailure()
		return fmt.Errorf("%w: clear limit for %s", ErrCommandFailed, ip)
	}
	return e.registry.ClearSpeedLimit(ip)
}

// BlockDevice drops all traffic for a device. Blocking an already blocked
// device succeeds without reapplying rules.
func (e *Engine) BlockDevice(ctx context.Context, ip string) (err error) {
	defer e.guard("block_device", &err)

	d, ok := e.registry.Get(ip)
	if !ok {
		return registry.ErrNotFound
	}
	if d.Status == models.DeviceStatusBlocked {
		return nil
	}
	if !e.adapter.BlockHost(ctx, ip) {
		e.countControlFailure()
		return fmt.Errorf("%w: block %s", ErrCommandFailed, ip)
	}
	e.logger.Info("device blocked", zap.String("ip", ip))
	return e.registry.SetBlocked(ip, true)
}

// UnblockDevice removes a device's block.
func (e *Engine) UnblockDevice(ctx context.Context, ip string) (err error) {
	defer e.guard("unblock_device", &err)

	if _, ok := e.registry.Get(ip); !ok {
		return registry.ErrNotFound
	}
	if !e.adapter.UnblockHost(ctx, ip) {
		e.countControlFailure()
		return fmt.Errorf("%w: unblock %s", ErrCommandFailed, ip)
	}
	e.logger.Info("device unblocked", zap.String("ip", ip))
	return e.registry.SetBlocked(ip, false)
}

// ProtectDevice starts the anti-spoofing loop for a device.
func (e *Engine) ProtectDevice(ctx context.Context, ip string) (err error) {
	defer e.guard("protect_device", &err)
	return e.control.Protect(ctx, ip)
}

// UnprotectDevice stops the anti-spoofing loop. The bool reports whether
// a loop was actually running for the device.
func (e *Engine) UnprotectDevice(ip string) (stopped bool, err error) {
	defer e.guard("unprotect_device", &err)
	return e.control.Unprotect(ip), nil
}

// CutDevice starts the disconnect loop for a device.
func (e *Engine) CutDevice(ctx context.Context, ip string) (err error) {
	defer e.guard("cut_device", &err)
	return e.control.Cut(ctx, ip)
}

// RestoreDevice stops a disconnect loop and re-announces true mappings.
// The bool reports whether a cut was actually running for the device.
func (e *Engine) RestoreDevice(ctx context.Context, ip string) (stopped bool, err error) {
	defer e.guard("restore_device", &err)
	return e.control.Restore(ctx, ip), nil
}

// RenameDevice sets an operator-chosen display name.
func (e *Engine) RenameDevice(ip, name string) error {
	return e.registry.Rename(ip, name)
}

// SetDeviceType overrides the classified type.
func (e *Engine) SetDeviceType(ip string, t models.DeviceType) error {
	return e.registry.SetType(ip, t)
}

// guard converts a panic in an operation into an error so nothing crosses
// the boundary.
func (e *Engine) guard(op string, err *error) {
	if r := recover(); r != nil {
		e.logger.Error("operation panicked",
			zap.String("op", op),
			zap.Any("panic", r))
		*err = fmt.Errorf("engine: %s: internal error: %v", op, r)
	}
}

func (e *Engine) countControlFailure() {
	if e.collect != nil {
		e.collect.ControlFailures.Inc()
	}
}
