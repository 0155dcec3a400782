// Package testutil provides shared test fixtures.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/lanward/pkg/models"
)

// NewDevice returns a Device with sensible defaults, suitable for test
// fixtures. Override individual fields via options as needed.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		IP:             "192.168.1.100",
		MAC:            "00:11:22:33:44:55",
		Hostname:       "test-device-" + uuid.NewString()[:8],
		DeviceType:     models.DeviceTypeDesktop,
		ConnectionType: models.ConnectionWired,
		Status:         models.DeviceStatusActive,
		AttackStatus:   models.AttackNone,
		FirstSeen:      time.Now().UTC(),
		LastSeen:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithIP sets the device's IP address.
func WithIP(ip string) func(*models.Device) {
	return func(d *models.Device) { d.IP = ip }
}

// WithMAC sets the device's MAC address.
func WithMAC(mac string) func(*models.Device) {
	return func(d *models.Device) { d.MAC = mac }
}

// WithHostname sets the device hostname.
func WithHostname(name string) func(*models.Device) {
	return func(d *models.Device) { d.Hostname = name }
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// WithDeviceType sets the device type.
func WithDeviceType(dt models.DeviceType) func(*models.Device) {
	return func(d *models.Device) { d.DeviceType = dt }
}

// WithLastSeen sets the device's last_seen timestamp.
func WithLastSeen(t time.Time) func(*models.Device) {
	return func(d *models.Device) { d.LastSeen = t }
}

// NewObservation returns an Observation for the given IP with a stable MAC.
func NewObservation(ip string, opts ...func(*models.Observation)) models.Observation {
	o := models.Observation{
		IP:             ip,
		MAC:            "00:11:22:33:44:55",
		ConnectionType: models.ConnectionWired,
		Source:         models.SourceActive,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
