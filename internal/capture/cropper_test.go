package capture

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientPage builds a w×h bitmap whose pixel at (x, y) encodes its own
// coordinates, so crops can be checked by value.
func gradientPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestLocatorFindsSurfaceUnderCenter(t *testing.T) {
	page0 := Surface{Page: 0, Origin: image.Pt(0, 0), Pixels: gradientPage(100, 100)}
	page1 := Surface{Page: 1, Origin: image.Pt(0, 110), Pixels: gradientPage(100, 100)}

	for _, mode := range []Mode{ModeSingleSurface, ModeWholePage} {
		t.Run(mode.String(), func(t *testing.T) {
			got, err := Locator{Mode: mode}.Locate([]Surface{page0, page1}, Point{X: 50, Y: 150})
			require.NoError(t, err)
			assert.Equal(t, 1, got.Page)

			_, err = Locator{Mode: mode}.Locate([]Surface{page0, page1}, Point{X: 50, Y: 105})
			assert.ErrorIs(t, err, ErrNoSurface)
		})
	}
}

func TestLocatorStackingOrder(t *testing.T) {
	below := Surface{Page: 0, Origin: image.Pt(0, 0), Pixels: gradientPage(100, 100)}
	above := Surface{Page: 7, Origin: image.Pt(20, 20), Pixels: gradientPage(50, 50)}
	surfaces := []Surface{below, above}

	got, err := Locator{Mode: ModeSingleSurface}.Locate(surfaces, Point{X: 40, Y: 40})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Page, "single-surface mode takes the topmost element")

	got, err = Locator{Mode: ModeWholePage}.Locate(surfaces, Point{X: 40, Y: 40})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Page, "whole-page mode walks the container in layout order")
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeWholePage, ParseMode("whole"))
	assert.Equal(t, ModeSingleSurface, ParseMode("single"))
	assert.Equal(t, ModeSingleSurface, ParseMode(""))
}

func TestCropCopiesPixelsRelativeToSurface(t *testing.T) {
	s := Surface{Page: 0, Origin: image.Pt(40, 60), Pixels: gradientPage(200, 200)}
	img, err := Crop(s, Rect{X: 50, Y: 80, Width: 30, Height: 20})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 10 ^ 20, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 39, G: 39, B: 39 ^ 39, A: 255}, img.RGBAAt(29, 19))
}

func TestCropOutsideSurfaceStaysTransparent(t *testing.T) {
	s := Surface{Origin: image.Pt(0, 0), Pixels: gradientPage(20, 20)}
	img, err := Crop(s, Rect{X: 10, Y: 10, Width: 20, Height: 20})
	require.NoError(t, err)

	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).A)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(15, 15))
}

func TestCropRejectsEmptyRect(t *testing.T) {
	s := Surface{Pixels: gradientPage(20, 20)}
	_, err := Crop(s, Rect{X: 1, Y: 1})
	assert.Error(t, err)
}

func TestCropAndEncodeAreDeterministic(t *testing.T) {
	rect := Rect{X: 12, Y: 7, Width: 64, Height: 48}
	first := Surface{Pixels: gradientPage(128, 128)}
	second := Surface{Pixels: gradientPage(128, 128)}

	a, err := Crop(first, rect)
	require.NoError(t, err)
	b, err := Crop(second, rect)
	require.NoError(t, err)

	encA, err := EncodePNG(a)
	require.NoError(t, err)
	encB, err := EncodePNG(b)
	require.NoError(t, err)
	assert.Equal(t, encA, encB)
	assert.Equal(t, DataURI(encA), DataURI(encB))
	assert.Contains(t, DataURI(encA), "data:image/png;base64,")
}
