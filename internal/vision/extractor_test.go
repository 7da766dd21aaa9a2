package vision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptFor(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
		err      error
	}{
		{"image/png", ImagePrompt, nil},
		{"image/jpeg", ImagePrompt, nil},
		{"application/pdf", PDFPrompt, nil},
		{"text/plain", "", ErrUnsupportedType},
		{"", "", ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			got, err := PromptFor(tt.mimeType)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModelExtractorSendsDocumentWithPrompt(t *testing.T) {
	m := &fakeModel{text: "Chapter 1"}
	e := NewModelExtractor(m, nil)

	got, err := e.Extract(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1", got)
	assert.Equal(t, PDFPrompt, m.prompt)
	assert.Equal(t, "application/pdf", m.mimeType)
}

func TestModelExtractorSkipsUnsupported(t *testing.T) {
	m := &fakeModel{}
	e := NewModelExtractor(m, nil)

	_, err := e.Extract(context.Background(), []byte("hello"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Zero(t, m.calls)
}

func TestLimiterBurstThenThrottle(t *testing.T) {
	lim := NewLimiter(2, 2)
	require.NotNil(t, lim)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, lim.Wait(ctx))
	require.NoError(t, lim.Wait(ctx))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, lim.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestDisabledLimiterIsNil(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 0))
	assert.Nil(t, NewLimiter(-1, 4))

	m := &fakeModel{text: "page text"}
	e := NewModelExtractor(m, NewLimiter(0, 0))
	for i := 0; i < 20; i++ {
		_, err := e.Extract(context.Background(), []byte("%PDF"), "application/pdf")
		require.NoError(t, err)
	}
	assert.Equal(t, 20, m.calls)
}
