package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// Crop copies the pixels under r out of s, 1:1. The result is exactly the
// size of r; parts of r that fall outside the surface stay transparent.
func Crop(s Surface, r Rect) (*image.RGBA, error) {
	if s.Pixels == nil {
		return nil, ErrNoSurface
	}
	want := r.Pixels()
	if want.Dx() <= 0 || want.Dy() <= 0 {
		return nil, fmt.Errorf("invalid crop dimensions: width=%d, height=%d", want.Dx(), want.Dy())
	}

	offset := want.Min.Sub(s.Origin)
	dst := image.NewRGBA(image.Rect(0, 0, want.Dx(), want.Dy()))
	srcMin := s.Pixels.Bounds().Min.Add(offset)
	draw.Draw(dst, dst.Bounds(), s.Pixels, srcMin, draw.Src)
	return dst, nil
}

// EncodePNG encodes img with a fixed encoder configuration.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI frames PNG bytes the way a canvas toDataURL call would.
func DataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}
