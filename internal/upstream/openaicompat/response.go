package openaicompat

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoContent means the response decoded but carried no first-choice text,
// or only whitespace.
var ErrNoContent = errors.New("response has no choices[0].message.content")

// OpenAI Chat Completion Response structure
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// FirstContent extracts choices[0].message.content from a completion body.
// Any other shape (error objects, empty choices, non-JSON) is an error.
func FirstContent(body []byte) (string, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractTokens extracts token usage from a non-streaming response
func ExtractTokens(body []byte) (int, int, error) {
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, 0, err
	}

	return resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}
