package models

// ObservationSource records which discovery path produced a sighting.
type ObservationSource string

const (
	// SourceActive means the device answered a direct probe this cycle.
	SourceActive ObservationSource = "active"
	// SourcePassive means the device was read from the kernel neighbor
	// table and may not have been verified recently.
	SourcePassive ObservationSource = "passive"
)

// Observation is a single sighting of a device during one discovery pass.
// Zero-value fields mean "not learned this pass" and never overwrite
// previously known attributes in the registry.
type Observation struct {
	IP             string
	MAC            string
	Hostname       string
	Interface      string
	Vendor         string
	DeviceType     DeviceType
	ConnectionType ConnectionType
	SignalDBm      *int
	Source         ObservationSource
}
