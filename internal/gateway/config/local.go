package config

import (
	"os"
	"strings"
)

// localUploadConfig targets the docker-compose MinIO when UPLOAD_MINIO_ENDPOINT
// is set and keeps uploads in memory otherwise.
func localUploadConfig() UploadConfig {
	endpoint := strings.TrimSpace(os.Getenv("UPLOAD_MINIO_ENDPOINT"))
	return UploadConfig{
		S3Enabled: endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "studytutor"),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "studytutor123"),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOAD_S3_BUCKET")), "studytutor-uploads"),
		UseSSL:    false,
	}
}
