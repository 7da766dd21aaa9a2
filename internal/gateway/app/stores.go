package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"studytutor/internal/gateway/config"
	"studytutor/internal/gateway/repository/upload"
)

func initUploadStore(cfg *config.Config, log zerolog.Logger) (upload.Store, error) {
	if !cfg.Upload.S3Enabled {
		log.Info().Msg("upload store: in-memory")
		return upload.NewMemoryStore(), nil
	}
	s3Cfg := upload.S3Config{
		Endpoint:  cfg.Upload.Endpoint,
		Region:    cfg.Upload.Region,
		AccessKey: cfg.Upload.AccessKey,
		SecretKey: cfg.Upload.SecretKey,
		Bucket:    cfg.Upload.Bucket,
		UseSSL:    cfg.Upload.UseSSL,
	}
	s3Store, err := upload.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload s3 store: %w", err)
	}
	log.Info().Str("bucket", s3Cfg.Bucket).Str("endpoint", s3Cfg.Endpoint).Msg("upload store: s3")
	return s3Store, nil
}
