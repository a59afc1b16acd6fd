package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cognitive-radio/crts/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "crts",
	Short: "Cognitive radio test system",
	Long: `crts runs cognitive engines against emulated channel scenarios and
records how each engine adapts its physical layer to reach its goal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	logLevel  string
	logFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json, pretty)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger.SetDefault(logger.ForFormat(logFormat, logLevel, os.Stderr))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("crts failed", "error", err)
		os.Exit(1)
	}
}
