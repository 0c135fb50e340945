package suggest

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Engine produces raw text completions for gift prompts.
type Engine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiEngine implements Engine against the Gemini API.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiEngine{client: client, model: model}, nil
}

func (e *GeminiEngine) Generate(ctx context.Context, prompt string) (string, error) {
	model := e.client.GenerativeModel(e.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return out, nil
}

// Model returns the configured model name, for history records and events.
func (e *GeminiEngine) Model() string {
	return e.model
}

func (e *GeminiEngine) Close() error {
	return e.client.Close()
}
