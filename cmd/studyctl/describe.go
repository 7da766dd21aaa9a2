package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:     "describe [image]",
	Short:   "Describe a screenshot the way the tutor sees it",
	Example: `  studyctl describe figure.png`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	relay, err := newRelay(ctx)
	if err != nil {
		return err
	}
	text, err := relay.DescribeBytes(ctx, data, http.DetectContentType(data))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
