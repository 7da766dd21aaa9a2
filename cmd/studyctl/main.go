package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"studytutor/internal/gateway/config"
	"studytutor/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg = config.FromEnv()
	if err := logger.Setup(logger.LogConfig{Level: cfg.LogLevel, Format: "console", Output: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	Execute()
}
