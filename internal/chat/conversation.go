// Package chat holds the client side of a conversation: the message log,
// the request builder and the session that runs one turn at a time.
package chat

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidMessage = errors.New("chat: message needs a known role and content")

// Message represents a chat message
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func (m Message) valid() bool {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return strings.TrimSpace(m.Content) != ""
	}
	return false
}

// Conversation is an append-only message log seeded with an assistant
// greeting. It is not safe for concurrent mutation; Session serializes turns.
type Conversation struct {
	messages []Message
}

func NewConversation(greeting string) *Conversation {
	return &Conversation{messages: []Message{{Role: RoleAssistant, Content: greeting}}}
}

// Restore rebuilds a conversation from history the client carried between
// requests. The greeting is always the first entry; system and malformed
// entries are dropped.
func Restore(greeting string, history []Message) *Conversation {
	c := NewConversation(greeting)
	for i, m := range history {
		if i == 0 && m.Role == RoleAssistant && m.Content == greeting {
			continue
		}
		if m.Role == RoleSystem || !m.valid() {
			continue
		}
		c.messages = append(c.messages, m)
	}
	return c
}

// Append adds m to the end of the log.
func (c *Conversation) Append(m Message) error {
	if !m.valid() {
		return ErrInvalidMessage
	}
	c.messages = append(c.messages, m)
	return nil
}

// Snapshot returns a copy of the log in insertion order.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}
