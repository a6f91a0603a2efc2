package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nextbus/signd/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"sessions_accepted", snap.SessionsAccepted,
					"sessions_active", snap.SessionsActive,
					"sessions_closed", snap.SessionsClosed,
					"frames_decoded", snap.FramesDecoded,
					"frames_encoded", snap.FramesEncoded,
					"frames_malformed", snap.FramesMalformed,
					"http_requests", snap.HTTPRequests,
					"registry_dropped", snap.RegistryDropped,
					"registry_kicked", snap.RegistryKicked,
					"firmware_sent", snap.FirmwareSent,
					"firmware_errors", snap.FirmwareErrors,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
