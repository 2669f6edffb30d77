package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/magmedia/brewbuddy/internal/chat"
	"github.com/magmedia/brewbuddy/internal/persona"
	"github.com/magmedia/brewbuddy/internal/proxy"
	"github.com/magmedia/brewbuddy/internal/render"
)

const teaAnswer = `## Green Tea with Bold Flavor

1. **Tea type**: a Japanese sencha or a Chinese gunpowder green
2. **Water temperature**: 175°F (80°C)
3. **Steeping time**: 2-3 minutes
4. **Amount**: 1 teaspoon per 8 oz
5. **Water quality**: filtered, soft water
6. **Flavor tips**: try a slightly longer second steep
7. **Common mistakes**: boiling water makes it bitter

> Enjoy your cup!`

func teaUpstream(t *testing.T, got *chat.CompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, got); err != nil {
			t.Errorf("upstream received invalid JSON: %v", err)
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": teaAnswer}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func checkTeaTurn(t *testing.T, s *chat.Session, sent chat.CompletionRequest, reply chat.Message) {
	t.Helper()

	p := persona.Default()
	if len(sent.Messages) != 3 {
		t.Fatalf("payload carried %d messages, want 3", len(sent.Messages))
	}
	if sent.Messages[0].Role != chat.RoleSystem || sent.Messages[0].Content != p.SystemPrompt {
		t.Errorf("messages[0] = %+v, want system prompt", sent.Messages[0])
	}
	if last := sent.Messages[2]; last.Role != chat.RoleUser || last.Content != "I have green tea, I like bold flavors" {
		t.Errorf("messages[2] = %+v, want the user message", last)
	}
	if sent.Model != p.Model || sent.MaxTokens != p.MaxTokens {
		t.Errorf("model/max_tokens = %q/%d", sent.Model, sent.MaxTokens)
	}

	if got := len(s.Messages()); got != 3 {
		t.Errorf("conversation has %d entries, want 3", got)
	}

	html := string(render.Markdown(reply.Content))
	if n := strings.Count(html, `<li class="md-li">`); n != 7 {
		t.Errorf("rendered %d list items, want 7:\n%s", n, html)
	}
	for _, want := range []string{
		`<h2 class="md-h2">Green Tea with Bold Flavor</h2>`,
		`<ol class="md-ol">`,
		`<strong class="md-strong">Water temperature</strong>`,
		`<blockquote class="md-quote">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered reply missing %q", want)
		}
	}
}

func TestTeaScenario_InProcessRelay(t *testing.T) {
	var sent chat.CompletionRequest
	up := teaUpstream(t, &sent)

	relay, err := proxy.New(proxy.Options{Endpoint: up.URL, APIKey: "sk-test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}

	s := chat.NewSession(persona.Default(), chat.LocalCompleter{Relay: relay}, nil)
	reply, err := s.Send(context.Background(), "I have green tea, I like bold flavors")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	checkTeaTurn(t, s, sent, reply)
}

func TestTeaScenario_RemoteRelay(t *testing.T) {
	var sent chat.CompletionRequest
	up := teaUpstream(t, &sent)

	relay, err := proxy.New(proxy.Options{Endpoint: up.URL, APIKey: "sk-test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("proxy.New: %v", err)
	}
	relaySrv := httptest.NewServer(proxy.NewHTTPHandler(relay, nil))
	defer relaySrv.Close()

	s := chat.NewSession(persona.Default(), chat.NewHTTPCompleter(relaySrv.URL, 5*time.Second), nil)
	reply, err := s.Send(context.Background(), "I have green tea, I like bold flavors")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	checkTeaTurn(t, s, sent, reply)
}

// Both completers must turn the same relay outcome into the same reply.
func TestCompleters_AgreeOnFailures(t *testing.T) {
	tests := []struct {
		name     string
		upstream http.HandlerFunc
		want     string
	}{
		{
			name: "upstream application error",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
			},
			want: chat.FallbackReply,
		},
		{
			name: "upstream non-JSON failure",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("<html>bad gateway</html>"))
			},
			want: chat.ErrorReply,
		},
		{
			name: "upstream timeout",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			want: chat.ErrorReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := httptest.NewServer(tt.upstream)
			defer up.Close()

			relay, err := proxy.New(proxy.Options{Endpoint: up.URL, APIKey: "sk-test", Timeout: 100 * time.Millisecond})
			if err != nil {
				t.Fatalf("proxy.New: %v", err)
			}
			relaySrv := httptest.NewServer(proxy.NewHTTPHandler(relay, nil))
			defer relaySrv.Close()

			completers := map[string]chat.Completer{
				"local":  chat.LocalCompleter{Relay: relay},
				"remote": chat.NewHTTPCompleter(relaySrv.URL, 5*time.Second),
			}
			for mode, c := range completers {
				s := chat.NewSession(persona.Default(), c, nil)
				reply, err := s.Send(context.Background(), "hello")
				if err != nil {
					t.Fatalf("%s Send: %v", mode, err)
				}
				if reply.Content != tt.want {
					t.Errorf("%s reply = %q, want %q", mode, reply.Content, tt.want)
				}
			}
		})
	}
}

func TestRemoteRelay_ErrorBodyBecomesErrorReply(t *testing.T) {
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Upstream request failed: timeout"}`))
	}))
	defer relaySrv.Close()

	s := chat.NewSession(persona.Default(), chat.NewHTTPCompleter(relaySrv.URL, 5*time.Second), nil)
	reply, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Content != chat.ErrorReply {
		t.Errorf("reply = %q, want %q", reply.Content, chat.ErrorReply)
	}
}

func TestRemoteRelay_Unreachable(t *testing.T) {
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := relaySrv.URL
	relaySrv.Close()

	s := chat.NewSession(persona.Default(), chat.NewHTTPCompleter(url, time.Second), nil)
	reply, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Content != chat.ErrorReply {
		t.Errorf("reply = %q, want %q", reply.Content, chat.ErrorReply)
	}
	if got := len(s.Messages()); got != 3 {
		t.Errorf("conversation has %d entries, want 3", got)
	}
}
