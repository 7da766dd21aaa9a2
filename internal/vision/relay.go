package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ImagePrompt is the instruction sent with every image, captured or uploaded.
const ImagePrompt = "Extract all text from this image. Return only the extracted text content, maintaining the original structure and formatting as much as possible. If there are any diagrams, charts, or visual elements, describe them briefly."

// Relay sends a captured screenshot to the vision model and returns its
// description. A failed call is not retried.
type Relay struct {
	model   Model
	limiter Limiter
	log     zerolog.Logger
}

func NewRelay(model Model, limiter Limiter, log zerolog.Logger) *Relay {
	return &Relay{model: model, limiter: limiter, log: log}
}

// Describe accepts a data URI or bare base64 payload.
func (r *Relay) Describe(ctx context.Context, encoded string) (string, error) {
	data, mimeType, err := DecodeDataURI(encoded)
	if err != nil {
		return "", err
	}
	return r.DescribeBytes(ctx, data, mimeType)
}

func (r *Relay) DescribeBytes(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidImage
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	text, err := r.model.Generate(ctx, ImagePrompt, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDescription
	}
	r.log.Debug().Int("bytes", len(data)).Int("chars", len(text)).Msg("image described")
	return text, nil
}

// DecodeDataURI strips an optional "data:<mime>;base64," prefix and decodes
// the payload. Without a prefix the MIME type is reported as image/png.
func DecodeDataURI(encoded string) ([]byte, string, error) {
	payload := strings.TrimSpace(encoded)
	mimeType := "image/png"
	if strings.HasPrefix(payload, "data:") {
		header, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: missing data URI payload", ErrInvalidImage)
		}
		header = strings.TrimPrefix(header, "data:")
		header = strings.TrimSuffix(header, ";base64")
		if header != "" {
			mimeType = header
		}
		payload = rest
	}
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, mimeType, nil
}
