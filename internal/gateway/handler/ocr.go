package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"studytutor/internal/vision"
)

// ImageDescriber answers the screenshot relay endpoint.
type ImageDescriber interface {
	Describe(ctx context.Context, encoded string) (string, error)
}

type OCRHandler struct {
	describer ImageDescriber
	extractor vision.Extractor
	log       zerolog.Logger
}

func NewOCRHandler(describer ImageDescriber, extractor vision.Extractor, log zerolog.Logger) *OCRHandler {
	return &OCRHandler{describer: describer, extractor: extractor, log: log}
}

// HandleOCR accepts either a JSON body with a data URI screenshot or a
// multipart upload of one image or PDF.
func (h *OCRHandler) HandleOCR(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		h.handleFile(w, r)
		return
	}

	var in struct {
		ImageData string `json:"imageData"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if strings.TrimSpace(in.ImageData) == "" {
		badRequest(w, "No image data provided")
		return
	}
	text, err := h.describer.Describe(r.Context(), in.ImageData)
	if err != nil {
		writeError(w, h.log, "Failed to analyze image", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *OCRHandler) handleFile(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(r, "file")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(files) == 0 {
		badRequest(w, "No file provided")
		return
	}
	f := files[0]
	if !vision.Supported(f.MIMEType) {
		badRequest(w, "Unsupported file type. Please upload an image or PDF.")
		return
	}
	text, err := h.extractor.Extract(r.Context(), f.Data, f.MIMEType)
	if err != nil {
		writeError(w, h.log, "Failed to process file", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"text":     text,
		"filename": f.Name,
		"mimeType": f.MIMEType,
	})
}
