package vision

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// Model sends one inline document plus a prompt and returns the text answer.
type Model interface {
	Generate(ctx context.Context, prompt string, data []byte, mimeType string) (string, error)
}

// GeminiModel is a thin wrapper around the official genai client.
type GeminiModel struct {
	cli   *genai.Client
	model string
}

// NewGeminiModel builds a client for the Gemini API. An empty apiKey lets the
// genai client fall back to GEMINI_API_KEY / GOOGLE_API_KEY.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &GeminiModel{cli: cli, model: model}, nil
}

func (g *GeminiModel) Name() string { return "Gemini:" + g.model }

func (g *GeminiModel) Generate(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				{Text: prompt},
			},
		}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
