//go:build !linux

package control

import "errors"

// ErrAnnounceUnavailable is returned on platforms without a raw ARP
// backend; protect and cut cannot run there.
var ErrAnnounceUnavailable = errors.New("control: link-layer announcements not supported on this platform")

// NewAnnouncer returns an announcer that always fails.
func NewAnnouncer() Announcer {
	return unavailableAnnouncer{}
}

type unavailableAnnouncer struct{}

func (unavailableAnnouncer) Announce(string, Announcement) error {
	return ErrAnnounceUnavailable
}
