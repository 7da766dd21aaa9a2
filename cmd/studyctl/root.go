package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"studytutor/internal/gateway/config"
	"studytutor/internal/logger"
	"studytutor/internal/vision"
	"studytutor/internal/voiceagent"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "studyctl",
	Short: "Command-line access to the study tutor's vision and voice tooling",
	Long: `studyctl runs the pieces behind the study tutor from a terminal:
describe or crop a screenshot, extract text from a document, build a
knowledge-base document and synthesize speech.

Configuration is read from the environment (and a .env file), the same
variables the gateway uses.`,
	SilenceUsage: true,
}

func Execute() {
	log := logger.WithComponent("studyctl")
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int("timeout", 120, "timeout in seconds")
}

// commandContext honors --timeout and Ctrl-C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	secs, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(secs)*time.Second)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

func newGeminiModel(ctx context.Context) (*vision.GeminiModel, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return vision.NewGeminiModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
}

func newRelay(ctx context.Context) (*vision.Relay, error) {
	model, err := newGeminiModel(ctx)
	if err != nil {
		return nil, err
	}
	return vision.NewRelay(model, vision.NewLimiter(cfg.Gemini.RPS, cfg.Gemini.Burst), logger.WithComponent("vision")), nil
}

// newExtractor returns the extractor and a cleanup func.
func newExtractor(ctx context.Context, backend string) (vision.Extractor, func(), error) {
	if backend == "" {
		backend = cfg.Extract.Backend
	}
	switch backend {
	case "cloudvision":
		cv, err := vision.NewCloudVisionExtractor(ctx)
		if err != nil {
			return nil, nil, err
		}
		return cv, func() { _ = cv.Close() }, nil
	case "gemini":
		model, err := newGeminiModel(ctx)
		if err != nil {
			return nil, nil, err
		}
		return vision.NewModelExtractor(model, vision.NewLimiter(cfg.Gemini.RPS, cfg.Gemini.Burst)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func newPlatform() (*voiceagent.Client, error) {
	if cfg.ElevenLabs.APIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is not set")
	}
	return voiceagent.NewClient(voiceagent.Config{
		APIKey:   cfg.ElevenLabs.APIKey,
		BaseURL:  cfg.ElevenLabs.BaseURL,
		WSURL:    cfg.ElevenLabs.WSURL,
		VoiceID:  cfg.ElevenLabs.VoiceID,
		TTSModel: cfg.ElevenLabs.TTSModel,
	}, logger.WithComponent("voiceagent")), nil
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
