// Package persona holds the fixed instructions that shape every chat turn:
// the system prompt, the seeded greeting and the model parameters.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/magmedia/brewbuddy/internal/config"
)

const (
	DefaultModel     = "gpt-4"
	DefaultMaxTokens = 1000
)

const defaultGreeting = "🍃 Welcome to the AI Tea Brewing Guide! Tell me about the tea you want to brew, " +
	"your preferences, or ask for brewing tips. I'll provide personalized recommendations for the best brewing method."

const defaultSystemPrompt = `You are an expert tea brewing specialist with deep knowledge of different tea types, brewing techniques, water temperatures, steeping times, and flavor profiles. When a user tells you about a tea they want to brew or asks for recommendations, provide:

1. Tea type identification and characteristics
2. Optimal water temperature (in both F and C)
3. Recommended steeping time
4. Amount of tea to use
5. Water quality recommendations if relevant
6. Tips for enhancing flavor
7. Common mistakes to avoid

Be friendly, engaging, and passionate about tea. Provide specific, actionable advice.`

// Persona is immutable after Load.
type Persona struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`
	Greeting     string `yaml:"greeting"`
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
}

// Default returns the tea brewing persona.
func Default() Persona {
	return Persona{
		Name:         "BrewBuddy",
		SystemPrompt: defaultSystemPrompt,
		Greeting:     defaultGreeting,
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
	}
}

// Load reads a YAML persona file. Fields left empty in the file keep their
// default values. An empty path returns Default().
func Load(path string) (Persona, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona file: %w", err)
	}

	var file Persona
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona file: %w", err)
	}

	if v := strings.TrimSpace(file.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(file.SystemPrompt); v != "" {
		p.SystemPrompt = v
	}
	if v := strings.TrimSpace(file.Greeting); v != "" {
		p.Greeting = v
	}
	if v := strings.TrimSpace(file.Model); v != "" {
		p.Model = v
	}
	if file.MaxTokens != 0 {
		p.MaxTokens = file.MaxTokens
	}
	p.MaxTokens = config.ClampMaxTokens(p.Model, p.MaxTokens)

	return p, nil
}
