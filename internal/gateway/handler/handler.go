package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"studytutor/internal/capture"
	"studytutor/internal/conversation"
	"studytutor/internal/gateway/repository/upload"
	"studytutor/internal/knowledge"
	"studytutor/internal/viewer"
	"studytutor/internal/vision"
	"studytutor/internal/voiceagent"
)

const (
	maxFormMemory = 32 << 20
	maxFileBytes  = 50 << 20
	maxJSONBytes  = 25 << 20
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes a JSON error body. Upstream
// platform failures keep the platform's status.
func writeError(w http.ResponseWriter, log zerolog.Logger, msg string, err error) {
	status := statusFor(err)
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg(msg)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(msg)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func statusFor(err error) int {
	var apiErr *voiceagent.APIError
	var modelErr genai.APIError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &modelErr):
		if modelErr.Code >= 400 {
			return modelErr.Code
		}
		return http.StatusBadGateway
	case errors.Is(err, viewer.ErrNotFound),
		errors.Is(err, viewer.ErrHandoffNotFound),
		errors.Is(err, viewer.ErrFileIndex),
		errors.Is(err, upload.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrCaptureInFlight),
		errors.Is(err, viewer.ErrBusy),
		errors.Is(err, viewer.ErrAgentExists),
		errors.Is(err, viewer.ErrSessionActive),
		errors.Is(err, viewer.ErrStopped),
		errors.Is(err, viewer.ErrHandoffConsumed):
		return http.StatusConflict
	case capture.IsMissingInput(err),
		errors.Is(err, capture.ErrNoSurface),
		errors.Is(err, viewer.ErrNoAgent),
		errors.Is(err, viewer.ErrNoSession),
		errors.Is(err, viewer.ErrNoFiles),
		errors.Is(err, conversation.ErrNoSession),
		errors.Is(err, knowledge.ErrNoFiles),
		errors.Is(err, vision.ErrUnsupportedType),
		errors.Is(err, vision.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// readFiles loads every multipart file under field.
func readFiles(r *http.Request, field string) ([]knowledge.File, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	headers := r.MultipartForm.File[field]
	files := make([]knowledge.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (knowledge.File, error) {
	src, err := fh.Open()
	if err != nil {
		return knowledge.File{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxFileBytes+1))
	if err != nil {
		return knowledge.File{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) > maxFileBytes {
		return knowledge.File{}, fmt.Errorf("%s exceeds %d bytes", fh.Filename, maxFileBytes)
	}
	return knowledge.File{Name: fh.Filename, MIMEType: fileType(fh, data), Data: data}, nil
}

// fileType prefers the part header, then the extension, then sniffing.
func fileType(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
		mt, _, _ := mime.ParseMediaType(byExt)
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
