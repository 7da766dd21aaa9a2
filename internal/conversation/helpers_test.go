package conversation

import (
	"context"
	"image"
)

type describerFunc func(ctx context.Context, encoded string) (string, error)

func (f describerFunc) Describe(ctx context.Context, encoded string) (string, error) {
	return f(ctx, encoded)
}

func blankPage(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
