package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// maxCloudVisionBytes is the synchronous request ceiling of the Vision API.
const maxCloudVisionBytes = 20 * 1024 * 1024

// CloudVisionExtractor runs DOCUMENT_TEXT_DETECTION over images and PDFs.
type CloudVisionExtractor struct {
	client *visionapi.ImageAnnotatorClient
}

// NewCloudVisionExtractor reads credentials from GOOGLE_CREDENTIALS (inline
// JSON), then GOOGLE_APPLICATION_CREDENTIALS, then application defaults.
func NewCloudVisionExtractor(ctx context.Context) (*CloudVisionExtractor, error) {
	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	client, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &CloudVisionExtractor{client: client}, nil
}

func (c *CloudVisionExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !Supported(mimeType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if len(data) > maxCloudVisionBytes {
		return "", fmt.Errorf("document too large for synchronous OCR: %d bytes", len(data))
	}
	feature := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

	if IsImage(mimeType) {
		resp, err := c.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
			Requests: []*visionpb.AnnotateImageRequest{{
				Image:    &visionpb.Image{Content: data},
				Features: feature,
			}},
		})
		if err != nil {
			return "", fmt.Errorf("vision api call failed: %w", err)
		}
		if len(resp.Responses) == 0 {
			return "", fmt.Errorf("no response from vision api")
		}
		return imageText(resp.Responses[0])
	}

	resp, err := c.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: data, MimeType: mimeType},
			Features:    feature,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision api call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("no response from vision api")
	}
	return fileText(resp.Responses[0])
}

func (c *CloudVisionExtractor) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func imageText(resp *visionpb.AnnotateImageResponse) (string, error) {
	if resp.GetError() != nil {
		return "", fmt.Errorf("vision api error: %s", resp.GetError().GetMessage())
	}
	text := resp.GetFullTextAnnotation().GetText()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDescription
	}
	return text, nil
}

// fileText joins the per-page annotations of a PDF with page separators.
func fileText(resp *visionpb.AnnotateFileResponse) (string, error) {
	if resp.GetError() != nil {
		return "", fmt.Errorf("vision api error: %s", resp.GetError().GetMessage())
	}
	var sb strings.Builder
	for i, page := range resp.GetResponses() {
		if page.GetError() != nil {
			return "", fmt.Errorf("error processing page %d: %s", i+1, page.GetError().GetMessage())
		}
		if page.GetFullTextAnnotation() == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintf(&sb, "\n\n--- Page %d ---\n\n", i+1)
		}
		sb.WriteString(page.GetFullTextAnnotation().GetText())
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyDescription
	}
	return sb.String(), nil
}
