// Package metrics exposes Prometheus instrumentation for nextbus-signd,
// adapted from the teacher's internal/metrics: the same promauto/promhttp
// wiring and local-atomic-mirror pattern, recounted to this domain's
// sessions/frames/registry/firmware concerns (SPEC_FULL §10.3).
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/nextbus/signd/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_accepted_total",
		Help: "Total TCP connections accepted from signs.",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Current number of connected sign sessions.",
	})
	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_closed_total",
		Help: "Total sign sessions that have terminated.",
	})
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_decoded_total",
		Help: "Total frames successfully decoded from signs, by message type.",
	}, []string{"type"})
	FramesEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_encoded_total",
		Help: "Total frames successfully encoded and written to signs, by message type.",
	}, []string{"type"})
	FramesMalformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_malformed_total",
		Help: "Total frames rejected during decode, by reason.",
	}, []string{"reason"})
	HTTPIntakeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_intake_requests_total",
		Help: "Total requests served by the HTTP intake surface, by response status.",
	}, []string{"status"})
	RegistryDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_dropped_total",
		Help: "Total broadcast messages not delivered: dropped under PolicyDrop or refused by a closed session.",
	})
	RegistryKicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_kicked_total",
		Help: "Total sessions closed under PolicyKick due to a wedged writer.",
	})
	RegistryActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_active_clients",
		Help: "Current number of sessions registered in the fan-out registry.",
	})
	FirmwareChunksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "firmware_chunks_sent_total",
		Help: "Total firmware code chunks successfully sent and acknowledged.",
	})
	FirmwarePushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "firmware_push_errors_total",
		Help: "Total firmware pushes that exhausted retries without an ack.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Malformed-frame reason label constants (SPEC_FULL §10.3).
const (
	ReasonUnknownType      = "unknown_type"
	ReasonMalformedPayload = "malformed_payload"
	ReasonChecksumMismatch = "checksum_mismatch"
	ReasonFraming          = "framing"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready, exactly as the teacher's StartHTTP does.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, kept so the periodic metrics-logger can log a
// summary line without scraping the process's own Prometheus registry.
var (
	localSessionsAccepted uint64
	localSessionsClosed   uint64
	localFramesDecoded    uint64
	localFramesEncoded    uint64
	localFramesMalformed  uint64
	localHTTPRequests     uint64
	localRegistryDropped  uint64
	localRegistryKicked   uint64
	localFirmwareSent     uint64
	localFirmwareErrors   uint64
	localErrors           uint64
	localSessionsActive   uint64
	localRegistryClients  uint64
)

// Snapshot is a cheap copy of local counters, mirroring the teacher's
// Snapshot type.
type Snapshot struct {
	SessionsAccepted int
	SessionsActive   int
	SessionsClosed   int
	FramesDecoded    int
	FramesEncoded    int
	FramesMalformed  int
	HTTPRequests     int
	RegistryDropped  int
	RegistryKicked   int
	RegistryClients  int
	FirmwareSent     int
	FirmwareErrors   int
	Errors           int
}

func Snap() Snapshot {
	return Snapshot{
		SessionsAccepted: int(atomic.LoadUint64(&localSessionsAccepted)),
		SessionsActive:   int(atomic.LoadUint64(&localSessionsActive)),
		SessionsClosed:   int(atomic.LoadUint64(&localSessionsClosed)),
		FramesDecoded:    int(atomic.LoadUint64(&localFramesDecoded)),
		FramesEncoded:    int(atomic.LoadUint64(&localFramesEncoded)),
		FramesMalformed:  int(atomic.LoadUint64(&localFramesMalformed)),
		HTTPRequests:     int(atomic.LoadUint64(&localHTTPRequests)),
		RegistryDropped:  int(atomic.LoadUint64(&localRegistryDropped)),
		RegistryKicked:   int(atomic.LoadUint64(&localRegistryKicked)),
		RegistryClients:  int(atomic.LoadUint64(&localRegistryClients)),
		FirmwareSent:     int(atomic.LoadUint64(&localFirmwareSent)),
		FirmwareErrors:   int(atomic.LoadUint64(&localFirmwareErrors)),
		Errors:           int(atomic.LoadUint64(&localErrors)),
	}
}

func IncSessionAccepted() {
	SessionsAccepted.Inc()
	atomic.AddUint64(&localSessionsAccepted, 1)
}

func IncSessionClosed() {
	SessionsClosed.Inc()
	atomic.AddUint64(&localSessionsClosed, 1)
}

func SetSessionsActive(n int) {
	SessionsActive.Set(float64(n))
	atomic.StoreUint64(&localSessionsActive, uint64(n))
}

func IncFrameDecoded(msgType string) {
	FramesDecoded.WithLabelValues(msgType).Inc()
	atomic.AddUint64(&localFramesDecoded, 1)
}

func IncFrameEncoded(msgType string) {
	FramesEncoded.WithLabelValues(msgType).Inc()
	atomic.AddUint64(&localFramesEncoded, 1)
}

func IncFrameMalformed(reason string) {
	FramesMalformed.WithLabelValues(reason).Inc()
	atomic.AddUint64(&localFramesMalformed, 1)
}

func IncHTTPIntake(status string) {
	HTTPIntakeRequests.WithLabelValues(status).Inc()
	atomic.AddUint64(&localHTTPRequests, 1)
}

func IncRegistryDropped() {
	RegistryDropped.Inc()
	atomic.AddUint64(&localRegistryDropped, 1)
}

func IncRegistryKicked() {
	RegistryKicked.Inc()
	atomic.AddUint64(&localRegistryKicked, 1)
}

func SetRegistryActiveClients(n int) {
	RegistryActiveClients.Set(float64(n))
	atomic.StoreUint64(&localRegistryClients, uint64(n))
}

func IncFirmwareChunkSent() {
	FirmwareChunksSent.Inc()
	atomic.AddUint64(&localFirmwareSent, 1)
}

func IncFirmwarePushError() {
	FirmwarePushErrors.Inc()
	atomic.AddUint64(&localFirmwareErrors, 1)
}

func IncError(where string) {
	Errors.WithLabelValues(where).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// and malformed-frame label series so the first observation doesn't pay
// first-use registration latency, matching the teacher's InitBuildInfo.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, reason := range []string{ReasonUnknownType, ReasonMalformedPayload, ReasonChecksumMismatch, ReasonFraming} {
		FramesMalformed.WithLabelValues(reason).Add(0)
	}
	for _, where := range []string{"conn_read", "conn_write", "accept", "listen", "http_intake", "firmware_push"} {
		Errors.WithLabelValues(where).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
