// Package registry holds the authoritative in-memory device state. All
// reads return copies; callers never hold references into the live map.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/lanward/internal/event"
	"github.com/HerbHall/lanward/pkg/models"
)

var (
	// ErrNotFound is returned for operations on an unknown IP.
	ErrNotFound = errors.New("registry: device not found")
	// ErrControlConflict is returned when a protect/cut mutation would
	// violate their mutual exclusivity.
	ErrControlConflict = errors.New("registry: protect and cut are mutually exclusive")
)

// ApplyStats summarizes one Apply pass.
type ApplyStats struct {
	Created int
	Updated int
	Aged    int
}

// Registry is the device table. A single mutex guards all state; the write
// rate (one discovery pass every few seconds plus operator mutations) is
// far below contention territory.
type Registry struct {
	staleness time.Duration
	bus       *event.Bus
	logger    *zap.Logger

	mu      sync.RWMutex
	devices map[string]*models.Device // keyed by IP
}

func New(staleness time.Duration, bus *event.Bus, logger *zap.Logger) *Registry {
	return &Registry{
		staleness: staleness,
		bus:       bus,
		logger:    logger.Named("registry"),
		devices:   make(map[string]*models.Device),
	}
}

// Apply merges one discovery pass into the table and ages out entries not
// refreshed within the staleness window. Blocked status is sticky: a
// sighting of a blocked device refreshes lastSeen but never reactivates it.
func (r *Registry) Apply(ctx context.Context, observations []models.Observation, now time.Time) ApplyStats {
	var stats ApplyStats
	var created, lost []models.Device

	r.mu.Lock()
	for _, obs := range observations {
		d, ok := r.devices[obs.IP]
		if !ok {
			d = &models.Device{
				IP:             obs.IP,
				DeviceType:     models.DeviceTypeUnknown,
				ConnectionType: models.ConnectionUnknown,
				Status:         models.DeviceStatusActive,
				AttackStatus:   models.AttackNone,
				FirstSeen:      now,
			}
			r.devices[obs.IP] = d
			stats.Created++
		} else {
			stats.Updated++
		}

		if obs.MAC != "" {
			d.MAC = obs.MAC
		}
		if obs.Hostname != "" {
			d.Hostname = obs.Hostname
		}
		if obs.Vendor != "" {
			d.Vendor = obs.Vendor
		}
		if obs.Interface != "" {
			d.Interface = obs.Interface
		}
		// Classification never downgrades to unknown and never clobbers a
		// type set explicitly by the operator.
		if obs.DeviceType != "" && obs.DeviceType != models.DeviceTypeUnknown &&
			d.DeviceType == models.DeviceTypeUnknown {
			d.DeviceType = obs.DeviceType
		}
		if obs.ConnectionType != "" && obs.ConnectionType != models.ConnectionUnknown {
			d.ConnectionType = obs.ConnectionType
		}
		if obs.SignalDBm != nil {
			v := *obs.SignalDBm
			d.SignalDBm = &v
		}

		d.LastSeen = now
		if d.Status != models.DeviceStatusBlocked {
			d.Status = models.DeviceStatusActive
		}
		if !ok {
			created = append(created, *d)
		}
	}

	for _, d := range r.devices {
		if d.Status == models.DeviceStatusActive && now.Sub(d.LastSeen) > r.staleness {
			d.Status = models.DeviceStatusInactive
			stats.Aged++
			lost = append(lost, *d)
		}
	}
	r.mu.Unlock()

	for _, d := range created {
		r.publish(ctx, event.TopicDeviceDiscovered, d)
	}
	for _, d := range lost {
		r.publish(ctx, event.TopicDeviceLost, d)
	}
	return stats
}

// Get returns a copy of the device at ip.
func (r *Registry) Get(ip string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[ip]
	if !ok {
		return models.Device{}, false
	}
	return *d, true
}

// List returns copies of all devices, optionally filtered by interface
// name. An empty filter matches everything.
func (r *Registry) List(ifaceFilter string) []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if ifaceFilter != "" && d.Interface != ifaceFilter {
			continue
		}
		out = append(out, *d)
	}
	return out
}

// ActiveCount reports how many devices are currently active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.devices {
		if d.Status == models.DeviceStatusActive {
			n++
		}
	}
	return n
}

// Summary aggregates the table for the external API.
func (r *Registry) Summary() models.NetworkSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := models.NetworkSummary{ByType: make(map[models.DeviceType]int)}
	for _, d := range r.devices {
		s.TotalDevices++
		if d.Status == models.DeviceStatusActive {
			s.ActiveDevices++
			s.TotalBandwidthMbps += d.CurrentSpeedMbps
		}
		s.ByType[d.DeviceType]++
	}
	return s
}

// mutate applies fn to the device at ip under the write lock.
func (r *Registry) mutate(ip string, fn func(*models.Device) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[ip]
	if !ok {
		return ErrNotFound
	}
	return fn(d)
}

// SetSpeedLimit records the operator-set cap in Mbps.
func (r *Registry) SetSpeedLimit(ip string, mbps float64) error {
	return r.mutate(ip, func(d *models.Device) error {
		d.SpeedLimitMbps = &mbps
		return nil
	})
}

// ClearSpeedLimit removes the cap.
func (r *Registry) ClearSpeedLimit(ip string) error {
	return r.mutate(ip, func(d *models.Device) error {
		d.SpeedLimitMbps = nil
		return nil
	})
}

// SetBlocked toggles blocked status. Unblocking returns the device to
// inactive; the next sighting reactivates it.
func (r *Registry) SetBlocked(ip string, blocked bool) error {
	return r.mutate(ip, func(d *models.Device) error {
		if blocked {
			d.Status = models.DeviceStatusBlocked
		} else if d.Status == models.DeviceStatusBlocked {
			d.Status = models.DeviceStatusInactive
		}
		return nil
	})
}

// SetProtected marks or unmarks the anti-spoofing loop. Protection cannot
// be enabled while a cut is running.
func (r *Registry) SetProtected(ip string, protected bool) error {
	return r.mutate(ip, func(d *models.Device) error {
		if protected && d.AttackStatus == models.AttackCutting {
			return ErrControlConflict
		}
		d.Protected = protected
		return nil
	})
}

// SetAttackStatus records a running cut. A protected device cannot be cut.
func (r *Registry) SetAttackStatus(ip string, status models.AttackStatus) error {
	return r.mutate(ip, func(d *models.Device) error {
		if status == models.AttackCutting && d.Protected {
			return ErrControlConflict
		}
		d.AttackStatus = status
		return nil
	})
}

// SetCurrentSpeed updates the bandwidth estimate, clamped at zero.
func (r *Registry) SetCurrentSpeed(ip string, mbps float64) error {
	return r.mutate(ip, func(d *models.Device) error {
		if mbps < 0 {
			mbps = 0
		}
		d.CurrentSpeedMbps = mbps
		return nil
	})
}

// Rename sets an operator-chosen hostname.
func (r *Registry) Rename(ip, hostname string) error {
	return r.mutate(ip, func(d *models.Device) error {
		d.Hostname = hostname
		return nil
	})
}

// SetType overrides the classified device type.
func (r *Registry) SetType(ip string, t models.DeviceType) error {
	return r.mutate(ip, func(d *models.Device) error {
		d.DeviceType = t
		return nil
	})
}

func (r *Registry) publish(ctx context.Context, topic string, d models.Device) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, event.Event{
		Topic:     topic,
		Source:    "registry",
		Timestamp: time.Now(),
		Payload:   d,
	})
}
