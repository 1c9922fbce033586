// Package health provides HTTP liveness and readiness probes for the
// mythweaver service.
//
//   - /healthz — liveness; always 200 while the process serves HTTP.
//   - /readyz  — readiness; 200 only when every registered probe passes.
//
// Responses are JSON with a top-level "status" field ("ok" or "fail") and a
// "probes" map naming each probe result.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Probe checks one dependency. Fn returns nil when healthy; it must respect
// context cancellation.
type Probe struct {
	Name string
	Fn   func(ctx context.Context) error
}

type response struct {
	Status string            `json:"status"`
	Probes map[string]string `json:"probes,omitempty"`
}

// Handler serves the health endpoints. The probe list is fixed at
// construction; evaluation order follows registration order.
type Handler struct {
	probes []Probe
}

// New creates a [Handler] over the given probes.
func New(probes ...Probe) *Handler {
	return &Handler{probes: append([]Probe(nil), probes...)}
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	res := response{Status: "ok", Probes: make(map[string]string, len(h.probes))}
	status := http.StatusOK

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Fn(ctx)
		cancel()
		if err != nil {
			res.Probes[p.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Probes[p.Name] = "ok"
	}

	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
