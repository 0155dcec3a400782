//go:build linux

package platform

import (
	"fmt"

	"github.com/mdlayher/wifi"

	"github.com/HerbHall/lanward/pkg/models"
)

// stationSignal returns the signal in dBm for the associated station with
// the given MAC, queried over nl80211. Requires the station to be attached
// to a local AP/station interface.
func stationSignal(mac string) (int, error) {
	c, err := wifi.New()
	if err != nil {
		return 0, fmt.Errorf("open wifi client: %w", err)
	}
	defer c.Close()

	ifaces, err := c.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("enumerate wifi interfaces: %w", err)
	}

	want := models.NormalizeMAC(mac)
	for _, ifi := range ifaces {
		stations, err := c.StationInfo(ifi)
		if err != nil {
			continue
		}
		for _, st := range stations {
			if models.NormalizeMAC(st.HardwareAddr.String()) == want {
				return st.Signal, nil
			}
		}
	}
	return 0, fmt.Errorf("station %s not found", want)
}
