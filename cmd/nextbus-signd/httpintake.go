package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/nextbus/signd/internal/metrics"
	"github.com/nextbus/signd/internal/proto"
	"github.com/nextbus/signd/internal/signhub"
)

// maxIntakeBody bounds the POST /write body: DebugMsg payload length is
// itself limited by the 16-bit frame length field, so nothing legitimate
// needs more than this.
const maxIntakeBody = 64 * 1024

// signInfo is the JSON shape returned by GET /signs.
type signInfo struct {
	ID            uint64 `json:"id"`
	RemoteAddr    string `json:"remote_addr"`
	ConnectedSince string `json:"connected_since"`
}

// newIntakeMux builds the operator-facing HTTP surface: POST /write
// fans a raw text body out to every connected sign as a DebugMsg; GET
// /signs lists currently-connected sign sessions (supplementing the
// distilled spec per SPEC_FULL §10.4).
func newIntakeMux(reg *signhub.Registry, l *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/write", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			metrics.IncHTTPIntake("405")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxIntakeBody)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			metrics.IncHTTPIntake("400")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reg.Broadcast(proto.NewDebugMsg(string(body)))
		metrics.IncHTTPIntake("200")
		l.Info("http_intake_write", "bytes", len(body), "signs", reg.Count())
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/signs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			metrics.IncHTTPIntake("405")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		clients := reg.Snapshot()
		out := make([]signInfo, 0, len(clients))
		for _, c := range clients {
			out = append(out, signInfo{
				ID:             c.ID,
				RemoteAddr:     c.Sess.RemoteAddr().String(),
				ConnectedSince: c.ConnectedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		metrics.IncHTTPIntake("200")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTPIntake("404")
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}
