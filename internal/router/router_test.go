package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/magmedia/brewbuddy/internal/chat"
	"github.com/magmedia/brewbuddy/internal/metrics"
	"github.com/magmedia/brewbuddy/internal/middleware"
	"github.com/magmedia/brewbuddy/internal/persona"
	"github.com/magmedia/brewbuddy/internal/proxy"
	"github.com/magmedia/brewbuddy/internal/web"
)

const upstreamReply = `{"choices":[{"message":{"role":"assistant","content":"Steep **3 minutes**"}}]}`

func newTestServer(t *testing.T, staticDir string) (*httptest.Server, *bytes.Buffer) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, upstreamReply)
	}))
	t.Cleanup(upstream.Close)

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	m := metrics.New()
	relay, err := proxy.New(proxy.Options{
		Endpoint: upstream.URL,
		APIKey:   "sk-router-secret",
		Timeout:  5 * time.Second,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}

	h := New(Options{
		Relay:     relay,
		Metrics:   m,
		Web:       web.NewHandler(persona.Default(), chat.LocalCompleter{Relay: relay}, logger),
		Logging:   middleware.NewLoggingMiddleware(logger),
		StaticDir: staticDir,
		Started:   time.Now(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, &logs
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"status":"healthy"`},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, `"total_requests"`},
		{"relay", http.MethodPost, "/api/chat", `{"model":"gpt-4","messages":[]}`, http.StatusOK, upstreamReply},
		{"relay wrong method", http.MethodGet, "/api/chat", "", http.StatusMethodNotAllowed, `"error"`},
		{"relay preflight", http.MethodOptions, "/api/chat", "", http.StatusNoContent, ""},
		{"page", http.MethodGet, "/", "", http.StatusOK, "Tea Brewing Guide"},
		{"stylesheet", http.MethodGet, "/assets/app.css", "", http.StatusOK, ".md-strong"},
		{"unknown GET gets the page", http.MethodGet, "/guides/oolong", "", http.StatusOK, "Tea Brewing Guide"},
		{"unknown POST", http.MethodPost, "/nope", "", http.StatusNotFound, `{"error":"Not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
			if resp.Header.Get(middleware.RequestIDHeader) == "" {
				t.Errorf("missing %s header", middleware.RequestIDHeader)
			}
		})
	}
}

func TestChatTurnThroughRouter(t *testing.T) {
	srv, logs := newTestServer(t, "")

	resp, err := http.PostForm(srv.URL+"/", map[string][]string{"message": {"How long for black tea?"}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `<strong class="md-strong">3 minutes</strong>`) {
		t.Errorf("page missing rendered reply:\n%s", body)
	}
	if strings.Contains(string(body), "sk-router-secret") || strings.Contains(logs.String(), "sk-router-secret") {
		t.Error("credential leaked into page or logs")
	}

	mresp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer mresp.Body.Close()
	var snap metrics.Snapshot
	if err := json.NewDecoder(mresp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.TotalRequests != 1 {
		t.Errorf("total_requests = %d, want 1", snap.TotalRequests)
	}
}

func TestStaticDirFallback(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o644)
	srv, _ := newTestServer(t, dir)

	resp, err := http.Get(srv.URL + "/brew/timer")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html>spa</html>" {
		t.Errorf("body = %q, want the SPA shell", body)
	}
}
