package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockHTTPClientQueue(t *testing.T) {
	m := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"ok":true}`).
		AddResponse(http.StatusNotFound, "missing").
		AddErrorResponse(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "http://example.test/tile", nil)

	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("first Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"ok":true}` {
		t.Errorf("first response = %d %q", resp.StatusCode, body)
	}

	resp, err = m.Do(req)
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second response status = %d, want 404", resp.StatusCode)
	}

	if _, err = m.Do(req); err == nil {
		t.Error("third Do should return the queued transport error")
	}

	// Exhausted queue falls back to an empty 200.
	resp, err = m.Do(req)
	if err != nil {
		t.Fatalf("fourth Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("exhausted-queue status = %d, want 200", resp.StatusCode)
	}

	if m.RequestCount() != 4 {
		t.Errorf("RequestCount = %d, want 4", m.RequestCount())
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 3})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var out map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["count"] != 3 {
		t.Errorf("count = %d, want 3", out["count"])
	}
}

func TestWriteJSONError(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad") }, http.StatusBadRequest},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "missing") }, http.StatusNotFound},
		{"method not allowed", MethodNotAllowed, http.StatusMethodNotAllowed},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			var out map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out["error"] == "" {
				t.Error("expected an error message in the body")
			}
		})
	}
}
