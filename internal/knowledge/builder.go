package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"studytutor/internal/vision"
	"studytutor/internal/voiceagent"
)

const (
	sectionSeparator = "\n\n---\n\n"
	extractFailed    = "Error: Could not extract text from this file."
	uploadFilename   = "extracted-content.txt"
)

var ErrNoFiles = errors.New("no files provided")

type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Platform stores text documents in the voice agent's knowledge base.
type Platform interface {
	CreateDocument(ctx context.Context, name, filename string, content []byte) (voiceagent.Document, error)
}

type Result struct {
	Document       voiceagent.Document
	FilesProcessed int
}

// Builder turns uploaded files into one knowledge-base document.
type Builder struct {
	extractor vision.Extractor
	platform  Platform
	log       zerolog.Logger
}

func NewBuilder(extractor vision.Extractor, platform Platform, log zerolog.Logger) *Builder {
	return &Builder{extractor: extractor, platform: platform, log: log}
}

// Build extracts every file, combines the text and uploads it. Extraction
// failures are recorded inline; only the upload can fail the call.
func (b *Builder) Build(ctx context.Context, files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}
	text := b.Combine(ctx, files)
	name := fmt.Sprintf("Uploaded Documents (%d files)", len(files))
	doc, err := b.platform.CreateDocument(ctx, name, uploadFilename, []byte(text))
	if err != nil {
		return Result{}, err
	}
	return Result{Document: doc, FilesProcessed: len(files)}, nil
}

// Combine extracts each supported file and joins the sections, each headed
// by "[From <name>]". Unsupported files are skipped.
func (b *Builder) Combine(ctx context.Context, files []File) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		if !vision.Supported(f.MIMEType) {
			b.log.Warn().Str("file", f.Name).Str("mime_type", f.MIMEType).Msg("skipping unsupported file type")
			continue
		}
		text, err := b.extractor.Extract(ctx, f.Data, f.MIMEType)
		if err != nil {
			b.log.Error().Err(err).Str("file", f.Name).Msg("error processing file")
			text = extractFailed
		}
		sections = append(sections, "[From "+f.Name+"]\n"+text)
	}
	return strings.Join(sections, sectionSeparator)
}
