package handler

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"studytutor/internal/capture"
	"studytutor/internal/viewer"
)

const maxSurfaceBytes = 40 << 20

type ViewerHandler struct {
	svc *viewer.Service
	log zerolog.Logger
}

func NewViewerHandler(svc *viewer.Service, log zerolog.Logger) *ViewerHandler {
	return &ViewerHandler{svc: svc, log: log}
}

func (h *ViewerHandler) viewer(w http.ResponseWriter, r *http.Request) (*viewer.Viewer, bool) {
	v, err := h.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, "Viewer not found", err)
		return nil, false
	}
	return v, true
}

// HandleUpload stores the posted files and returns the handoff the viewer
// page mounts with.
func (h *ViewerHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(r, "files")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	hand, err := h.svc.Upload(r.Context(), files)
	if err != nil {
		writeError(w, h.log, "Failed to upload files", err)
		return
	}
	writeJSON(w, http.StatusCreated, hand)
}

func (h *ViewerHandler) HandleMount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		HandoffID string `json:"handoff_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if strings.TrimSpace(in.HandoffID) == "" {
		badRequest(w, "handoff_id is required")
		return
	}
	v, err := h.svc.Mount(r.Context(), in.HandoffID)
	if err != nil {
		writeError(w, h.log, "Failed to open viewer", err)
		return
	}
	writeJSON(w, http.StatusCreated, v.Snapshot())
}

func (h *ViewerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *ViewerHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.log, "Failed to close viewer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleView applies a navigation or zoom action.
func (h *ViewerHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var in struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	switch strings.ToLower(strings.TrimSpace(in.Action)) {
	case "next":
		v.Navigate(1)
		v.ClearSurfaces()
	case "prev":
		v.Navigate(-1)
		v.ClearSurfaces()
	case "zoom_in":
		v.Zoom(1)
		v.ClearSurfaces()
	case "zoom_out":
		v.Zoom(-1)
		v.ClearSurfaces()
	case "zoom_reset":
		v.Zoom(0)
		v.ClearSurfaces()
	default:
		badRequest(w, "unsupported action: "+in.Action)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *ViewerHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		badRequest(w, "file index must be a number")
		return
	}
	ref, data, err := h.svc.FileContent(r.Context(), v, index)
	if err != nil {
		writeError(w, h.log, "Failed to load file", err)
		return
	}
	w.Header().Set("Content-Type", ref.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", ref.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandlePutSurface stores the rendered bitmap of one page. The page's
// viewport offset comes from X-Surface-Left and X-Surface-Top.
func (h *ViewerHandler) HandlePutSurface(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 0 {
		badRequest(w, "page must be a non-negative number")
		return
	}
	left, err := headerInt(r, "X-Surface-Left")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	top, err := headerInt(r, "X-Surface-Top")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	img, _, err := image.Decode(io.LimitReader(r.Body, maxSurfaceBytes))
	if err != nil {
		badRequest(w, "surface body must be a PNG or JPEG image")
		return
	}
	v.PutSurface(capture.Surface{Page: page, Origin: image.Pt(left, top), Pixels: img})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ViewerHandler) HandleClearSurfaces(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	v.ClearSurfaces()
	w.WriteHeader(http.StatusNoContent)
}

func headerInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.Header.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return int(n), nil
}

func (h *ViewerHandler) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	agentID, err := h.svc.CreateAgent(r.Context(), v)
	if err != nil {
		writeError(w, h.log, "Failed to create AI tutor", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_id": agentID, "viewer": v.Snapshot()})
}

func (h *ViewerHandler) HandleStartConversation(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	if err := h.svc.StartConversation(r.Context(), v); err != nil {
		writeError(w, h.log, "Failed to start conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *ViewerHandler) HandleStopConversation(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	if err := h.svc.StopConversation(r.Context(), v); err != nil {
		writeError(w, h.log, "Failed to stop conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *ViewerHandler) HandleMic(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var in struct {
		Muted bool `json:"muted"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if err := h.svc.SetMicMuted(v, in.Muted); err != nil {
		writeError(w, h.log, "Failed to toggle microphone", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"muted": in.Muted})
}

// HandleCapture replays a selection gesture and relays the crop.
func (h *ViewerHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var in struct {
		Gesture []capture.GestureEvent `json:"gesture"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	res, err := v.Capture(r.Context(), in.Gesture)
	if err != nil {
		writeError(w, h.log, "Failed to capture screenshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"captured": true,
		"analysis": res.Analysis,
		"page":     res.Page,
		"rect":     res.Rect,
		"width":    res.Width,
		"height":   res.Height,
	})
}

func (h *ViewerHandler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	v, ok := h.viewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": v.Transcript()})
}
