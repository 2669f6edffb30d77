package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/magmedia/brewbuddy/internal/persona"
	"github.com/magmedia/brewbuddy/internal/upstream/openaicompat"
)

const (
	// FallbackReply is recorded when the reply has no first-choice content.
	FallbackReply = "Unable to get a response"
	// ErrorReply is recorded when the relay could not be reached at all.
	ErrorReply = "Sorry, I encountered an error. Please try again."
)

var (
	ErrBusy       = errors.New("chat: a reply is still pending")
	ErrEmptyInput = errors.New("chat: message is empty")
)

// Session runs turns of a single conversation. At most one turn is in flight;
// a Send while another is pending fails with ErrBusy instead of queueing.
type Session struct {
	persona   persona.Persona
	conv      *Conversation
	completer Completer
	logger    *log.Logger
	busy      atomic.Bool
}

func NewSession(p persona.Persona, completer Completer, logger *log.Logger) *Session {
	return ResumeSession(p, nil, completer, logger)
}

// ResumeSession continues a conversation from client-held history.
func ResumeSession(p persona.Persona, history []Message, completer Completer, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		persona:   p,
		conv:      Restore(p.Greeting, history),
		completer: completer,
		logger:    logger,
	}
}

// Send appends the user's text, asks the relay for a reply and appends
// exactly one assistant message: the reply, or a fallback when it failed.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer s.busy.Store(false)

	if err := s.conv.Append(Message{Role: RoleUser, Content: text}); err != nil {
		return Message{}, err
	}

	req := Build(s.conv.Snapshot(), s.persona.SystemPrompt, s.persona.Model, s.persona.MaxTokens)
	reply := Message{Role: RoleAssistant, Content: s.complete(ctx, req)}
	if err := s.conv.Append(reply); err != nil {
		reply.Content = FallbackReply
		s.conv.Append(reply)
	}
	return reply, nil
}

func (s *Session) complete(ctx context.Context, req CompletionRequest) string {
	body, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.logger.Printf("ERROR [chat] completion failed: %v", err)
		return ErrorReply
	}

	content, err := openaicompat.FirstContent(body)
	if err != nil {
		s.logger.Printf("WARN [chat] unusable reply: %v", err)
		return FallbackReply
	}
	return content
}

// Messages returns the conversation so far. Call it between turns.
func (s *Session) Messages() []Message {
	return s.conv.Snapshot()
}

func (s *Session) inFlight() bool {
	return s.busy.Load()
}
