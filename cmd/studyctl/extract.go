package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"studytutor/internal/knowledge"
	"studytutor/internal/logger"
	"studytutor/internal/vision"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract study text from PDFs and images",
	Long: `Extract runs the knowledge-base extraction over each file and prints the
combined text, each section headed by "[From <file>]". With --upload the
combined text is stored as a knowledge-base document instead.`,
	Example: `  studyctl extract chapter1.pdf diagram.png
  studyctl extract chapter1.pdf --backend cloudvision --json
  studyctl extract chapter1.pdf --upload`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("backend", "", "gemini or cloudvision (default from EXTRACT_BACKEND)")
	extractCmd.Flags().Bool("json", false, "print JSON")
	extractCmd.Flags().Bool("upload", false, "upload the combined text as a knowledge-base document")
	extractCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")
	backend, _ := cmd.Flags().GetString("backend")
	asJSON, _ := cmd.Flags().GetBool("json")
	doUpload, _ := cmd.Flags().GetBool("upload")
	out, _ := cmd.Flags().GetString("output")

	files := make([]knowledge.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		f := knowledge.File{Name: filepath.Base(path), MIMEType: detectType(path, data), Data: data}
		if !vision.Supported(f.MIMEType) {
			log.Warn().Str("file", path).Str("type", f.MIMEType).Msg("skipping unsupported file")
		}
		files = append(files, f)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	extractor, cleanup, err := newExtractor(ctx, backend)
	if err != nil {
		return err
	}
	defer cleanup()

	if doUpload {
		platform, err := newPlatform()
		if err != nil {
			return err
		}
		res, err := knowledge.NewBuilder(extractor, platform, log).Build(ctx, files)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"document_id":    res.Document.ID,
			"name":           res.Document.Name,
			"filesProcessed": res.FilesProcessed,
		})
	}

	text := knowledge.NewBuilder(extractor, nil, log).Combine(ctx, files)
	if asJSON {
		raw, err := json.MarshalIndent(map[string]any{"text": text, "files": len(files)}, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(out, append(raw, '\n'))
	}
	return writeOutput(out, []byte(text+"\n"))
}

func detectType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		mt, _, _ := mime.ParseMediaType(byExt)
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
