package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"studytutor/internal/gateway/handler"
	"studytutor/internal/gateway/middleware"
	"studytutor/internal/gateway/rpc"
)

func NewMux(
	ocrHandler *handler.OCRHandler,
	platformHandler *handler.PlatformHandler,
	viewerHandler *handler.ViewerHandler,
	annotationHandler *rpc.AnnotationHandler,
	log zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(annotationHandler.Handler())

	// Proxy Handlers
	mux.HandleFunc("POST /api/ocr", ocrHandler.HandleOCR)
	mux.HandleFunc("POST /api/knowledge-base/create", platformHandler.HandleCreateKnowledgeBase)
	mux.HandleFunc("DELETE /api/knowledge-base/delete", platformHandler.HandleDeleteKnowledgeBase)
	mux.HandleFunc("POST /api/agents/create", platformHandler.HandleCreateAgent)
	mux.HandleFunc("DELETE /api/agents/delete", platformHandler.HandleDeleteAgent)
	mux.HandleFunc("POST /api/tts", platformHandler.HandleTTS)

	// Viewer Handlers
	mux.HandleFunc("POST /api/uploads", viewerHandler.HandleUpload)
	mux.HandleFunc("POST /api/viewers", viewerHandler.HandleMount)
	mux.HandleFunc("GET /api/viewers/{id}", viewerHandler.HandleGet)
	mux.HandleFunc("DELETE /api/viewers/{id}", viewerHandler.HandleClose)
	mux.HandleFunc("POST /api/viewers/{id}/view", viewerHandler.HandleView)
	mux.HandleFunc("GET /api/viewers/{id}/files/{index}", viewerHandler.HandleFile)
	mux.HandleFunc("PUT /api/viewers/{id}/surfaces/{page}", viewerHandler.HandlePutSurface)
	mux.HandleFunc("DELETE /api/viewers/{id}/surfaces", viewerHandler.HandleClearSurfaces)
	mux.HandleFunc("POST /api/viewers/{id}/agent", viewerHandler.HandleCreateAgent)
	mux.HandleFunc("POST /api/viewers/{id}/conversation", viewerHandler.HandleStartConversation)
	mux.HandleFunc("DELETE /api/viewers/{id}/conversation", viewerHandler.HandleStopConversation)
	mux.HandleFunc("POST /api/viewers/{id}/mic", viewerHandler.HandleMic)
	mux.HandleFunc("POST /api/viewers/{id}/capture", viewerHandler.HandleCapture)
	mux.HandleFunc("GET /api/viewers/{id}/transcript", viewerHandler.HandleTranscript)
	mux.HandleFunc("GET /api/viewers/{id}/feed", viewerHandler.HandleFeed)

	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	// Middleware
	return middleware.CORS(middleware.Logging(log)(mux))
}
