package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"studytutor/internal/capture"
	"studytutor/internal/conversation"
	"studytutor/internal/gateway/config"
	"studytutor/internal/gateway/handler"
	"studytutor/internal/gateway/rpc"
	"studytutor/internal/gateway/server"
	"studytutor/internal/knowledge"
	"studytutor/internal/logger"
	"studytutor/internal/viewer"
	"studytutor/internal/vision"
	"studytutor/internal/voiceagent"
)

type App struct {
	server  *server.Server
	viewers *viewer.Service
	limiter vision.Limiter
	closers []io.Closer
	log     zerolog.Logger
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Setup(logger.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"}); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	log := logger.WithComponent("gateway")

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.ElevenLabs.APIKey) == "" {
		log.Warn().Msg("ELEVENLABS_API_KEY is not set; agent and speech calls will fail")
	}

	ctx := context.Background()
	a := &App{log: log}

	// Vision
	model, err := vision.NewGeminiModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}
	a.limiter = vision.NewLimiter(cfg.Gemini.RPS, cfg.Gemini.Burst)
	relay := vision.NewRelay(model, a.limiter, logger.WithComponent("vision"))
	extractor, err := a.newExtractor(ctx, cfg, model)
	if err != nil {
		return nil, err
	}

	// Dependencies
	platform := voiceagent.NewClient(voiceagent.Config{
		APIKey:   cfg.ElevenLabs.APIKey,
		BaseURL:  cfg.ElevenLabs.BaseURL,
		WSURL:    cfg.ElevenLabs.WSURL,
		VoiceID:  cfg.ElevenLabs.VoiceID,
		TTSModel: cfg.ElevenLabs.TTSModel,
	}, logger.WithComponent("voiceagent"))
	builder := knowledge.NewBuilder(extractor, platform, logger.WithComponent("knowledge"))

	uploads, err := initUploadStore(cfg, log)
	if err != nil {
		return nil, err
	}
	handoffs := viewer.NewHandoffRegistry(256, cfg.Viewer.HandoffTTL, func(h viewer.Handoff) {
		if err := uploads.DeleteAll(context.Background(), h.ID); err != nil {
			log.Warn().Err(err).Str("handoff_id", h.ID).Msg("failed to delete expired uploads")
		}
	})
	a.viewers = viewer.NewService(viewer.Config{
		Handoffs:  handoffs,
		Uploads:   uploads,
		Knowledge: builder,
		Platform:  platform,
		Dial: func(ctx context.Context, agentID string) (conversation.Session, error) {
			sess, err := platform.Dial(ctx, agentID)
			if err != nil {
				return nil, err
			}
			return sess, nil
		},
		Describer:   relay,
		CaptureMode: capture.ParseMode(cfg.CaptureMode),
		MaxViewers:  cfg.Viewer.Max,
		TTL:         cfg.Viewer.TTL,
		Log:         logger.WithComponent("viewer"),
	})

	ocrHandler := handler.NewOCRHandler(relay, extractor, logger.WithComponent("ocr"))
	platformHandler := handler.NewPlatformHandler(builder, platform, logger.WithComponent("platform"))
	viewerHandler := handler.NewViewerHandler(a.viewers, logger.WithComponent("viewer_http"))
	annotationHandler := rpc.NewAnnotationHandler(a.viewers, logger.WithComponent("annotation"))

	// Routing & Server
	mux := server.NewMux(ocrHandler, platformHandler, viewerHandler, annotationHandler, logger.WithComponent("http"))
	a.server = server.New(cfg.Port, mux, log)
	return a, nil
}

func (a *App) newExtractor(ctx context.Context, cfg *config.Config, model vision.Model) (vision.Extractor, error) {
	switch cfg.Extract.Backend {
	case "cloudvision":
		cv, err := vision.NewCloudVisionExtractor(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cv)
		a.log.Info().Msg("file extraction: cloud vision")
		return cv, nil
	case "", "gemini":
		a.log.Info().Msg("file extraction: gemini")
		return vision.NewModelExtractor(model, a.limiter), nil
	default:
		return nil, fmt.Errorf("unknown EXTRACT_BACKEND %q", cfg.Extract.Backend)
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the server, then tears down every mounted viewer so no
// session, agent, knowledge-base document or upload outlives the process.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if verr := a.viewers.CloseAll(ctx); verr != nil {
		a.log.Error().Err(verr).Msg("failed to close viewers")
		err = errors.Join(err, verr)
	}
	for _, c := range a.closers {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
