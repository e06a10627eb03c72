package grpc

import (
	"context"
	"time"
)

// Probe reports whether the store can serve a read.
type Probe interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

func (s *GRPCServer) runProbe(ctx context.Context) {
	t := time.NewTicker(s.probeInterval)
	defer t.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		err := s.probe.Ping(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil && healthy:
			s.logger.Error(ctx, "store probe failed", "error", err)
			s.setServing(false)
			healthy = false
		case err == nil && !healthy:
			s.logger.Info(ctx, "store probe recovered")
			s.setServing(true)
			healthy = true
		}
	}
}
