package ai

import "context"

// GenerateRequest carries one completion request. Seed varies per retry
// attempt so a failing prompt does not deterministically fail again.
type GenerateRequest struct {
	System string
	Prompt string
	Seed   int
}

// Generator produces a text completion for a prompt. The program generation
// service asks for JSON-shaped output; implementations should request a JSON
// response format when the provider supports one.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Model() string
}
