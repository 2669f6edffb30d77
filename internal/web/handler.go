// Package web serves the server-rendered chat page. The conversation lives in
// the page itself: each POST carries the prior history in a hidden field and
// the response re-embeds it with the new turn appended.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"

	"github.com/magmedia/brewbuddy/internal/chat"
	"github.com/magmedia/brewbuddy/internal/persona"
	"github.com/magmedia/brewbuddy/internal/render"
)

const (
	// maxFormBody bounds the whole POST, history included.
	maxFormBody = 1 << 20

	contentSecurityPolicy = "default-src 'self'; img-src 'self'; object-src 'none'; frame-ancestors 'none'"
)

//go:embed templates/chat.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

type viewMessage struct {
	User bool
	Text string
	HTML template.HTML
}

type pageData struct {
	Title    string
	Messages []viewMessage
	History  string
	Notice   string
}

// Handler renders the chat page and runs one turn per form submission.
type Handler struct {
	persona   persona.Persona
	completer chat.Completer
	logger    *log.Logger
}

func NewHandler(p persona.Persona, completer chat.Completer, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{persona: p, completer: completer, logger: logger}
}

// Page renders the seeded conversation.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, chat.NewConversation(h.persona.Greeting).Snapshot(), "")
}

// Turn restores the posted history, sends the message and renders the result.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.render(w, http.StatusRequestEntityTooLarge, chat.NewConversation(h.persona.Greeting).Snapshot(),
				"That conversation got too long. Starting a fresh pot.")
			return
		}
		h.render(w, http.StatusBadRequest, chat.NewConversation(h.persona.Greeting).Snapshot(), "Could not read the form.")
		return
	}

	history := decodeHistory(r.PostFormValue("h"))
	session := chat.ResumeSession(h.persona, history, h.completer, h.logger)

	if _, err := session.Send(r.Context(), r.PostFormValue("message")); err != nil {
		if !errors.Is(err, chat.ErrEmptyInput) {
			h.logger.Printf("ERROR [web] turn failed: %v", err)
		}
	}
	h.render(w, http.StatusOK, session.Messages(), "")
}

// Assets serves the embedded stylesheet and script under /assets/.
func Assets() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

func (h *Handler) render(w http.ResponseWriter, status int, msgs []chat.Message, notice string) {
	data := pageData{
		Title:    h.persona.Name,
		Messages: make([]viewMessage, 0, len(msgs)),
		History:  encodeHistory(msgs),
		Notice:   notice,
	}
	for _, m := range msgs {
		if m.Role == chat.RoleUser {
			data.Messages = append(data.Messages, viewMessage{User: true, Text: m.Content})
			continue
		}
		data.Messages = append(data.Messages, viewMessage{HTML: render.Markdown(m.Content)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := page.Execute(w, data); err != nil {
		h.logger.Printf("ERROR [web] template execution failed: %v", err)
	}
}

// decodeHistory reads the hidden field. Anything unparseable restarts the
// conversation rather than failing the request.
func decodeHistory(raw string) []chat.Message {
	if raw == "" {
		return nil
	}
	var msgs []chat.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil
	}
	return msgs
}

// encodeHistory serializes the whole conversation for the hidden field. Its
// size is bounded by maxFormBody on the way back in.
func encodeHistory(msgs []chat.Message) string {
	b, err := json.Marshal(msgs)
	if err != nil {
		return ""
	}
	return string(b)
}
