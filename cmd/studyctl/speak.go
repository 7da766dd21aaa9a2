package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var speakCmd = &cobra.Command{
	Use:     "speak [text]",
	Short:   "Synthesize speech with the tutor's voice",
	Example: `  studyctl speak "Photosynthesis happens in the chloroplast" -o answer.mp3`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)
	speakCmd.Flags().StringP("output", "o", "speech.mp3", "output audio file")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("output")
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("text is required")
	}

	platform, err := newPlatform()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	speech, err := platform.Speak(ctx, text)
	if err != nil {
		return err
	}
	defer speech.Body.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := io.Copy(f, speech.Body)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes of %s to %s\n", n, speech.ContentType, out)
	return nil
}
