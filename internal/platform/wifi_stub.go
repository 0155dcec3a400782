//go:build !linux

package platform

import "errors"

// stationSignal is unavailable off Linux; the darwin and windows backends
// read signal via their own command output instead.
func stationSignal(_ string) (int, error) {
	return 0, errors.New("nl80211 station info not supported on this platform")
}
