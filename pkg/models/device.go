package models

import (
	"strings"
	"time"
)

// DeviceType categorizes a network device.
type DeviceType string

const (
	DeviceTypePhone   DeviceType = "phone"
	DeviceTypeLaptop  DeviceType = "laptop"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeSmartTV DeviceType = "smart-tv"
	DeviceTypeGaming  DeviceType = "gaming"
	DeviceTypeIoT     DeviceType = "iot"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeUnknown DeviceType = "unknown"
)

// DeviceStatus represents the current state of a device.
type DeviceStatus string

const (
	DeviceStatusActive   DeviceStatus = "active"
	DeviceStatusInactive DeviceStatus = "inactive"
	DeviceStatusBlocked  DeviceStatus = "blocked"
)

// ConnectionType indicates how a device is attached to the segment.
type ConnectionType string

const (
	ConnectionWifi    ConnectionType = "wifi"
	ConnectionWired   ConnectionType = "wired"
	ConnectionUnknown ConnectionType = "unknown"
)

// AttackStatus indicates whether a disconnect loop is running for a device.
type AttackStatus string

const (
	AttackNone    AttackStatus = "none"
	AttackCutting AttackStatus = "cutting"
)

// Device represents one participant on the local network segment.
//
// Devices are keyed by IP address. DHCP can reassign addresses between
// sightings, in which case history is attributed to the new holder of the
// address; MAC is tracked as a mutable attribute rather than the key.
type Device struct {
	IP             string         `json:"ip"`
	MAC            string         `json:"mac,omitempty"`
	Hostname       string         `json:"hostname,omitempty"`
	Vendor         string         `json:"vendor,omitempty"`
	Interface      string         `json:"interface,omitempty"`
	DeviceType     DeviceType     `json:"device_type"`
	ConnectionType ConnectionType `json:"connection_type"`
	Status         DeviceStatus   `json:"status"`

	// SignalDBm is the WiFi signal strength toward the device, when the
	// platform can report it.
	SignalDBm *int `json:"signal_dbm,omitempty"`

	// SpeedLimitMbps is the operator-set cap; nil means unlimited.
	SpeedLimitMbps *float64 `json:"speed_limit_mbps,omitempty"`
	// CurrentSpeedMbps is a recomputed estimate, never negative.
	CurrentSpeedMbps float64 `json:"current_speed_mbps"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Protected devices have an anti-spoofing correction loop running.
	// Protected and AttackStatus == AttackCutting are mutually exclusive.
	Protected    bool         `json:"protected"`
	AttackStatus AttackStatus `json:"attack_status"`
}

// GatewayInfo holds the resolved default gateway addresses.
type GatewayInfo struct {
	IP  string `json:"ip"`
	MAC string `json:"mac"`
}

// NetworkSummary aggregates the registry for the external API.
type NetworkSummary struct {
	TotalDevices       int                `json:"total_devices"`
	ActiveDevices      int                `json:"active_devices"`
	ByType             map[DeviceType]int `json:"by_type"`
	TotalBandwidthMbps float64            `json:"total_bandwidth_mbps"`
}

// NormalizeMAC canonicalizes a link-layer address to uppercase,
// colon-separated form. Windows-style dashes are accepted.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
}
