package control

// Announcement is one unsolicited link-layer reply: it tells the listener
// that SpoofedIP is reachable at ClaimedMAC. Corrective announcements
// claim the true MAC; disruptive ones claim this host's.
type Announcement struct {
	ListenerIP  string
	ListenerMAC string
	SpoofedIP   string
	ClaimedMAC  string
}

// Announcer sends announcements on a specific interface.
type Announcer interface {
	Announce(ifaceName string, a Announcement) error
}
