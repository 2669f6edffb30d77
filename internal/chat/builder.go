package chat

// CompletionRequest represents an OpenAI-compatible chat completion request.
// Messages[0] is always the system prompt.
type CompletionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

// Build composes the outbound payload for the next turn. It copies role and
// content only and never touches conv.
func Build(conv []Message, systemPrompt, model string, maxTokens int) CompletionRequest {
	messages := make([]Message, 0, len(conv)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	for _, m := range conv {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}

	return CompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
}
