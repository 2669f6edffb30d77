package config

import "strings"

// ModelLimits defines the completion token ceiling for a model family.
type ModelLimits struct {
	MaxOutputTokens int
}

// GetModelLimits returns token limits for a given model
func GetModelLimits(model string) ModelLimits {
	model = strings.ToLower(model)
	switch {
	case strings.Contains(model, "gpt-4o"), strings.Contains(model, "gpt-4.1"):
		return ModelLimits{MaxOutputTokens: 16384}

	case strings.Contains(model, "gpt-4"):
		return ModelLimits{MaxOutputTokens: 8192}

	case strings.Contains(model, "gpt-3.5"):
		return ModelLimits{MaxOutputTokens: 4096}

	case strings.Contains(model, "claude"), strings.Contains(model, "gemini"):
		return ModelLimits{MaxOutputTokens: 8192}

	// Default conservative limit
	default:
		return ModelLimits{MaxOutputTokens: 2048}
	}
}

// ClampMaxTokens keeps a requested max_tokens within the model's output limit.
// Non-positive requests fall back to the limit itself.
func ClampMaxTokens(model string, requested int) int {
	limit := GetModelLimits(model).MaxOutputTokens
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}
