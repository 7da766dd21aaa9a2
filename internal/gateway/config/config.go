package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	CaptureMode string
	Gemini      GeminiConfig
	Extract     ExtractConfig
	ElevenLabs  ElevenLabsConfig
	Viewer      ViewerConfig
	Upload      UploadConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
	RPS    float64
	Burst  int
}

type ExtractConfig struct {
	// Backend is "gemini" or "cloudvision".
	Backend string
}

type ElevenLabsConfig struct {
	APIKey   string
	BaseURL  string
	WSURL    string
	VoiceID  string
	TTSModel string
}

type ViewerConfig struct {
	TTL        time.Duration
	Max        int
	HandoffTTL time.Duration
}

type UploadConfig struct {
	S3Enabled bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	cfg := FromEnv()
	if os.Getenv("PORT") == "" {
		cfg.Port = *port
	}
	return cfg, nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	port := ":8081"
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			port = envPort
		} else {
			port = ":" + envPort
		}
	}

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	logFormat := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "json"
		if isLocal(env) {
			logFormat = "console"
		}
	}

	return &Config{
		Port:        port,
		Env:         env,
		LogLevel:    firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info"),
		LogFormat:   logFormat,
		CaptureMode: firstNonEmpty(strings.TrimSpace(os.Getenv("CAPTURE_MODE")), "single"),
		Gemini: GeminiConfig{
			APIKey: firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			Model:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-1.5-flash"),
			RPS:    parseFloat(os.Getenv("VISION_RPS"), 0),
			Burst:  parseInt(os.Getenv("VISION_BURST"), 1),
		},
		Extract: ExtractConfig{
			Backend: strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("EXTRACT_BACKEND")), "gemini")),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:   strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
			BaseURL:  strings.TrimSpace(os.Getenv("ELEVENLABS_BASE_URL")),
			WSURL:    strings.TrimSpace(os.Getenv("ELEVENLABS_WS_URL")),
			VoiceID:  strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")),
			TTSModel: strings.TrimSpace(os.Getenv("ELEVENLABS_TTS_MODEL")),
		},
		Viewer: ViewerConfig{
			TTL:        parseDuration(os.Getenv("VIEWER_TTL"), 2*time.Hour),
			Max:        parseInt(os.Getenv("VIEWER_MAX"), 64),
			HandoffTTL: parseDuration(os.Getenv("HANDOFF_TTL"), 15*time.Minute),
		},
		Upload: loadUploadConfig(env),
	}
}

func loadUploadConfig(env string) UploadConfig {
	if isLocal(env) {
		return localUploadConfig()
	}
	endpoint := strings.TrimSpace(os.Getenv("UPLOAD_S3_ENDPOINT"))
	return UploadConfig{
		S3Enabled: endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_REGION")), "us-east-1"),
		AccessKey: strings.TrimSpace(os.Getenv("UPLOAD_S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("UPLOAD_S3_SECRET_KEY")),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_BUCKET")), "studytutor-uploads"),
		UseSSL:    parseBool(os.Getenv("UPLOAD_S3_USE_SSL"), true),
	}
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseInt(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func parseFloat(raw string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
