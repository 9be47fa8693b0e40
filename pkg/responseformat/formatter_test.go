package responseformat

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestWriteResponseStatusDefaultsToJSON(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()

	if err := f.WriteResponseStatus(w, req, http.StatusTeapot, map[string]any{"ok": true}, nil); err != nil {
		t.Fatalf("WriteResponseStatus: %v", err)
	}

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
	if body := w.Body.String(); body != "{\"ok\":true}\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestWriteResponseStatusUsesMsgpackWhenRequested(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/api/status?format=msgpack", nil)
	w := httptest.NewRecorder()

	type payload struct {
		Scenario string `json:"scenario"`
	}
	if err := f.WriteResponseStatus(w, req, http.StatusOK, payload{Scenario: "Heatwave"}, nil); err != nil {
		t.Fatalf("WriteResponseStatus: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Fatalf("content-type = %q, want application/x-msgpack", ct)
	}

	var got map[string]string
	if err := msgpack.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("msgpack.Unmarshal: %v", err)
	}
	if got["scenario"] != "Heatwave" {
		t.Fatalf("got %v, want scenario=Heatwave", got)
	}
}

func TestWriteResponseSetsCORSHeaderAndAppliesExtraHeaders(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()

	if err := f.WriteResponse(w, req, map[string]any{}, map[string]string{"X-Custom": "yes"}); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("CORS header = %q, want *", got)
	}
	if got := w.Header().Get("X-Custom"); got != "yes" {
		t.Fatalf("X-Custom header = %q, want yes", got)
	}
}
