// Package main provides the entry point for the QTI to Learnosity converter.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "learnosity_qti",
	Short:        "QTI to Learnosity converter",
	Long:         "learnosity_qti converts QTI v2.x content packages into Learnosity item, question and feature JSON.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
