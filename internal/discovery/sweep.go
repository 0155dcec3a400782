package discovery

import (
	"context"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Sweeper sends a short ICMP echo to every host before a passive read.
// The replies themselves are discarded; the point is to force the kernel
// to ARP for each host so the neighbor table fills in, which makes
// passive discovery useful even where raw ARP probing is unavailable.
type Sweeper struct {
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

func NewSweeper(timeout time.Duration, concurrency int, logger *zap.Logger) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger.Named("sweep"),
	}
}

// Sweep pings all hosts with bounded concurrency and returns when every
// probe has finished or ctx is done.
func (s *Sweeper) Sweep(ctx context.Context, hosts []string) {
	if len(hosts) == 0 {
		return
	}

	start := time.Now()
	privileged := runtime.GOOS == "windows"

	sem := make(chan struct{}, s.concurrency)
	for _, ip := range hosts {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		}

		go func(ip string) {
			defer func() { <-sem }()
			s.pingHost(ctx, ip, privileged)
		}(ip)
	}

	// Drain the semaphore to join all workers.
	for i := 0; i < s.concurrency; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}

	s.logger.Debug("warm-up sweep finished",
		zap.Int("hosts", len(hosts)),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Sweeper) pingHost(ctx context.Context, ip string, privileged bool) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		s.logger.Debug("failed to create pinger", zap.String("ip", ip), zap.Error(err))
		return
	}
	pinger.Count = 1
	pinger.Timeout = s.timeout
	pinger.SetPrivileged(privileged)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			s.logger.Debug("ping failed", zap.String("ip", ip), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
	}
}
