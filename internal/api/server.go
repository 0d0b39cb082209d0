// Package api serves the unit's local HTTP surface: a status snapshot for
// field debugging, a liveness probe, and Prometheus metrics.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baysense/bayd/internal/httputil"
	"github.com/baysense/bayd/internal/loop"
	"github.com/baysense/bayd/internal/monitoring"
	"github.com/baysense/bayd/internal/timeutil"
	"github.com/baysense/bayd/internal/units"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	state   *loop.StateCell
	reg     *prometheus.Registry
	version string
	bayID   string
	units   string
	clock   timeutil.Clock
	started time.Time
}

func NewServer(state *loop.StateCell, reg *prometheus.Registry, bayID, version, displayUnits string, clock timeutil.Clock) *Server {
	if !units.IsValid(displayUnits) {
		displayUnits = units.CM
	}
	return &Server{
		state:   state,
		reg:     reg,
		version: version,
		bayID:   bayID,
		units:   displayUnits,
		clock:   clock,
		started: clock.Now(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/healthz", s.healthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// statusResponse is the wire shape of /api/status. It flattens the loop
// snapshot plus identity fields so field tooling gets one flat object.
type statusResponse struct {
	BayID         string    `json:"bay_id"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Distance      float64   `json:"distance"`
	Units         string    `json:"units"`
	Band          string    `json:"band"`
	Occupied      bool      `json:"occupied"`
	Connected     bool      `json:"connected"`
	SampledAt     time.Time `json:"sampled_at"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	// allow a per-request override of the display units
	displayUnits := s.units
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.WriteJSONError(w, http.StatusBadRequest,
				"invalid units: expected one of "+units.GetValidUnitsString())
			return
		}
		displayUnits = u
	}

	snap := s.state.Snapshot()
	httputil.WriteJSONOK(w, statusResponse{
		BayID:         s.bayID,
		Version:       s.version,
		UptimeSeconds: s.clock.Since(s.started).Seconds(),
		Distance:      units.ConvertDistance(snap.DistanceCM, displayUnits),
		Units:         displayUnits,
		Band:          snap.Band,
		Occupied:      snap.Occupied,
		Connected:     snap.Connected,
		SampledAt:     snap.SampledAt,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}
