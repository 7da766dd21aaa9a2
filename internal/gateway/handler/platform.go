package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"studytutor/internal/knowledge"
	"studytutor/internal/voiceagent"
)

type KnowledgeBuilder interface {
	Build(ctx context.Context, files []knowledge.File) (knowledge.Result, error)
}

// Platform is the part of the voice-agent API proxied as-is.
type Platform interface {
	DeleteDocument(ctx context.Context, id string) error
	CreateAgent(ctx context.Context, spec voiceagent.AgentSpec) (string, error)
	DeleteAgent(ctx context.Context, id string) error
	Speak(ctx context.Context, text string) (*voiceagent.Speech, error)
}

// PlatformHandler proxies knowledge-base, agent and speech calls.
type PlatformHandler struct {
	builder  KnowledgeBuilder
	platform Platform
	log      zerolog.Logger
}

func NewPlatformHandler(builder KnowledgeBuilder, platform Platform, log zerolog.Logger) *PlatformHandler {
	return &PlatformHandler{builder: builder, platform: platform, log: log}
}

func (h *PlatformHandler) HandleCreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(r, "files")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(files) == 0 {
		badRequest(w, "No files provided")
		return
	}
	res, err := h.builder.Build(r.Context(), files)
	if err != nil {
		writeError(w, h.log, "Failed to create knowledge base", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    res.Document.ID,
		"name":           res.Document.Name,
		"filesProcessed": res.FilesProcessed,
	})
}

func (h *PlatformHandler) HandleDeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DocumentID string `json:"document_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	id := strings.TrimSpace(in.DocumentID)
	if id == "" {
		badRequest(w, "document_id is required")
		return
	}
	if err := h.platform.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, h.log, "Failed to delete knowledge base", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *PlatformHandler) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		KnowledgeBaseIDs []string `json:"knowledgeBaseIds"`
		FileNames        []string `json:"fileNames"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if len(in.KnowledgeBaseIDs) == 0 {
		badRequest(w, "knowledgeBaseIds is required")
		return
	}

	spec := voiceagent.AgentSpec{FileNames: in.FileNames}
	for i, id := range in.KnowledgeBaseIDs {
		name := fmt.Sprintf("Knowledge Base %d", i+1)
		if i < len(in.FileNames) && strings.TrimSpace(in.FileNames[i]) != "" {
			name = in.FileNames[i]
		}
		spec.KnowledgeBase = append(spec.KnowledgeBase, voiceagent.Document{ID: id, Name: name})
	}
	agentID, err := h.platform.CreateAgent(r.Context(), spec)
	if err != nil {
		writeError(w, h.log, "Failed to create agent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agent_id": agentID})
}

func (h *PlatformHandler) HandleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AgentID string `json:"agent_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	id := strings.TrimSpace(in.AgentID)
	if id == "" {
		badRequest(w, "agent_id is required")
		return
	}
	if err := h.platform.DeleteAgent(r.Context(), id); err != nil {
		writeError(w, h.log, "Failed to delete agent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleTTS streams synthesized speech back to the caller.
func (h *PlatformHandler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		badRequest(w, "Text is required")
		return
	}
	speech, err := h.platform.Speak(r.Context(), in.Text)
	if err != nil {
		writeError(w, h.log, "Failed to generate speech", err)
		return
	}
	defer speech.Body.Close()

	w.Header().Set("Content-Type", speech.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, speech.Body); err != nil {
		h.log.Warn().Err(err).Msg("speech stream interrupted")
	}
}
