package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chemlayout/pkg/errors"
	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/mol/moltest"
	"github.com/matzehuels/chemlayout/pkg/observability"
	"github.com/matzehuels/chemlayout/pkg/pipeline"
)

func newTestServer() *Server {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return New(pipeline.NewRunner(nil, nil, logger), pipeline.Options{}, logger)
}

func encode(t *testing.T, m *mol.Molecule) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := chemio.WriteJSON(m, nil, &buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request ID")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request ID = %q, want abc-123", got)
	}
}

func TestLayout(t *testing.T) {
	rec := do(newTestServer(), http.MethodPost, "/v1/layout?bond_length=1.5", encode(t, moltest.Naphthalene()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var raw struct {
		Report struct {
			BondLength float64 `json:"bond_length"`
			Rings      int     `json:"rings"`
		} `json:"report"`
	}
	body := rec.Body.Bytes()
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Report.BondLength != 1.5 || raw.Report.Rings != 2 {
		t.Errorf("report = %+v", raw.Report)
	}

	m, err := chemio.ReadJSON(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("response is not a molecule: %v", err)
	}
	if !m.AllPlaced() {
		t.Error("every atom should have a coordinate")
	}
}

func TestLayoutErrors(t *testing.T) {
	disconnected := encode(t, moltest.Build("pair", 4, [2]int{0, 1}, [2]int{2, 3}))
	benzene := encode(t, moltest.Benzene())

	tests := []struct {
		name   string
		target string
		body   []byte
		status int
		code   errors.Code
	}{
		{"empty body", "/v1/layout", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"malformed", "/v1/layout", []byte("{"), http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"disconnected", "/v1/layout", disconnected, http.StatusBadRequest, errors.ErrCodeDisconnected},
		{"bad number", "/v1/layout?bond_length=abc", benzene, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad bond length", "/v1/layout?bond_length=-3", benzene, http.StatusBadRequest, errors.ErrCodeInvalidBondLength},
		{"bad boolean", "/v1/layout?force=maybe", benzene, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad input format", "/v1/layout?input_format=smiles", benzene, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
	}
	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if got := decodeError(t, rec); got.Code != tt.code || got.Message == "" {
				t.Errorf("error = %+v, want code %s", got, tt.code)
			}
		})
	}
}

func TestRender(t *testing.T) {
	s := newTestServer()
	rec := do(s, http.MethodPost, "/v1/render/svg?scale=30&indices=true", encode(t, moltest.Benzene()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Errorf("body = %.60q", rec.Body.String())
	}
	if got := rec.Header().Get(CacheHeader); got != "miss" {
		t.Errorf("%s = %q, want miss", CacheHeader, got)
	}

	rec = do(s, http.MethodPost, "/v1/render/DOT", encode(t, moltest.Benzene()))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "graph ") {
		t.Errorf("dot: status = %d, body = %.60q", rec.Code, rec.Body.String())
	}

	rec = do(s, http.MethodPost, "/v1/render/pdf", encode(t, moltest.Benzene()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != errors.ErrCodeInvalidFormat {
		t.Errorf("unknown format: code = %s", got.Code)
	}
}

func TestTemplates(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/v1/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []TemplateInfo
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 || got[0].Name != "cubane" || got[0].Atoms != 8 || got[0].Bonds != 12 {
		t.Errorf("templates = %+v", got)
	}
}

func TestNotFound(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/v2/nothing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != errors.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", got.Code, errors.ErrCodeNotFound)
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu       sync.Mutex
	routes   []string
	statuses []int
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.statuses = append(h.statuses, status)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	s := newTestServer()
	do(s, http.MethodPost, "/v1/render/svg", encode(t, moltest.Benzene()))
	do(s, http.MethodPost, "/v1/render/svg", []byte("{"))

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) != 2 {
		t.Fatalf("hook calls = %d, want 2", len(hooks.routes))
	}
	for _, r := range hooks.routes {
		if r != "/v1/render/{format}" {
			t.Errorf("route = %q, want the route pattern", r)
		}
	}
	if hooks.statuses[0] != http.StatusOK || hooks.statuses[1] != http.StatusBadRequest {
		t.Errorf("statuses = %v", hooks.statuses)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestServer().ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
