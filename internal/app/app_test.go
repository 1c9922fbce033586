package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ntbao/mythweaver/internal/config"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(testApp(t).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestBuildPromptEndpoint(t *testing.T) {
	srv := httptest.NewServer(testApp(t).routes())
	defer srv.Close()

	body := `{
		"session_id": "phien-1",
		"player_input": "tấn công Hắc Lang Vương",
		"state": {
			"turn": 4,
			"time": {"year": 1, "month": 2, "day": 9},
			"world": {"name": "Huyền Thiên Đại Lục"},
			"party": ["Lý Thanh Vân"],
			"entities": {
				"Lý Thanh Vân": {"name": "Lý Thanh Vân", "type": "player_character", "motivation": "Báo thù"},
				"Hắc Lang Vương": {"name": "Hắc Lang Vương", "type": "npc", "description": "Yêu thú hung bạo."}
			}
		}
	}`
	resp, err := http.Post(srv.URL+"/v1/prompt", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Prompt           string `json:"prompt"`
		Tokens           int    `json:"tokens"`
		CorrelationToken string `json:"correlation_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, want := range []string{"## VAI TRÒ", "Hắc Lang Vương", "## HÀNH ĐỘNG LƯỢT 4"} {
		if !strings.Contains(got.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if got.Tokens <= 0 {
		t.Errorf("tokens = %d, want > 0", got.Tokens)
	}
	if got.CorrelationToken == "" {
		t.Error("correlation token missing")
	}
}

func TestBuildPromptEndpoint_BadRequests(t *testing.T) {
	srv := httptest.NewServer(testApp(t).routes())
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"session_id": `},
		{"missing session id", `{"player_input": "đi về phía bắc"}`},
		{"invalid state", `{"session_id": "p1", "state": {"entities": {"A": {"name": "B", "type": "npc"}}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/prompt", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var got map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if got["error"] == "" {
				t.Error("error body missing message")
			}
		})
	}
}
