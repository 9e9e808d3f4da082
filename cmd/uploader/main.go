package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

func main() {
	rootCmd := &cobra.Command{
		Use:   "uploader",
		Short: "Upload tomato images for ripeness prediction",
		Long: `Uploader sends an image to a ripeness prediction service and shows
the predicted label with its confidence.

Run "uploader serve" for the web page, or "uploader predict FILE" for a
single prediction from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		predictCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
