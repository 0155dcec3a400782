//go:build !linux

package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NewProber returns a prober that always reports unavailability. Discovery
// runs passive-only on platforms without a raw ARP backend.
func NewProber(_ time.Duration, _ int, _ *zap.Logger) Prober {
	return unavailableProber{}
}

type unavailableProber struct{}

func (unavailableProber) Probe(context.Context, string, []string) (map[string]string, error) {
	return nil, ErrProbeUnavailable
}

func (unavailableProber) ProbeMAC(context.Context, string, string) (string, error) {
	return "", ErrProbeUnavailable
}
