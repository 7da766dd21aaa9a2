package vision

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTextSeparatesPages(t *testing.T) {
	resp := &visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: "Page one"}},
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: "Page two"}},
		},
	}
	got, err := fileText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\n--- Page 2 ---\n\nPage two", got)
}

func TestFileTextEmptyDocument(t *testing.T) {
	_, err := fileText(&visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	})
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestImageText(t *testing.T) {
	got, err := imageText(&visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: "Supply and demand"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Supply and demand", got)

	_, err = imageText(&visionpb.AnnotateImageResponse{})
	assert.ErrorIs(t, err, ErrEmptyDescription)
}
