package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec, body
}

func TestHealthz_AlwaysOK(t *testing.T) {
	rec, body := serve(t, New(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz_AllProbesPass(t *testing.T) {
	h := New(
		Probe{Name: "database", Fn: func(context.Context) error { return nil }},
		Probe{Name: "arena", Fn: func(context.Context) error { return nil }},
	)
	rec, body := serve(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body.Probes["database"] != "ok" || body.Probes["arena"] != "ok" {
		t.Errorf("probes = %v", body.Probes)
	}
}

func TestReadyz_FailingProbe(t *testing.T) {
	h := New(
		Probe{Name: "database", Fn: func(context.Context) error { return errors.New("connection refused") }},
		Probe{Name: "arena", Fn: func(context.Context) error { return nil }},
	)
	rec, body := serve(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body.Status != "fail" {
		t.Errorf("body status = %q, want fail", body.Status)
	}
	if body.Probes["database"] != "fail: connection refused" {
		t.Errorf("database probe = %q", body.Probes["database"])
	}
	if body.Probes["arena"] != "ok" {
		t.Errorf("healthy probe reported %q", body.Probes["arena"])
	}
}

func TestReadyz_ProbeHonoursContext(t *testing.T) {
	h := New(Probe{Name: "slow", Fn: func(ctx context.Context) error {
		if ctx.Done() == nil {
			t.Error("probe context has no deadline channel")
		}
		return nil
	}})
	rec, _ := serve(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
