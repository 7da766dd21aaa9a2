package vision

import (
	"context"
	"fmt"
	"strings"
)

// PDFPrompt is the instruction sent with uploaded PDF documents.
const PDFPrompt = "Extract all text content from this PDF document. Maintain the structure and formatting. Include important headings, sections, and any key information."

// Extractor pulls the text out of an uploaded study document.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PromptFor returns the extraction prompt for mimeType.
func PromptFor(mimeType string) (string, error) {
	switch {
	case IsImage(mimeType):
		return ImagePrompt, nil
	case IsPDF(mimeType):
		return PDFPrompt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
}

func IsImage(mimeType string) bool { return strings.HasPrefix(mimeType, "image/") }
func IsPDF(mimeType string) bool   { return mimeType == "application/pdf" }

// Supported reports whether an extractor can handle mimeType.
func Supported(mimeType string) bool { return IsImage(mimeType) || IsPDF(mimeType) }

// ModelExtractor extracts text with a generative model.
type ModelExtractor struct {
	model   Model
	limiter Limiter
}

func NewModelExtractor(model Model, limiter Limiter) *ModelExtractor {
	return &ModelExtractor{model: model, limiter: limiter}
}

func (e *ModelExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	prompt, err := PromptFor(mimeType)
	if err != nil {
		return "", err
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	text, err := e.model.Generate(ctx, prompt, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
