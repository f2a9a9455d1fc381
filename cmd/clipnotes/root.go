package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "clipnotes",
	Short: "Self-hosted notes dashboard for video creators",
	Long: `clipnotes is a self-hosted dashboard for video creators. It keeps
timestamped notes about your videos searchable and taggable, proxies
your catalog and comments from the video platform, and can ship
encrypted database snapshots to S3-compatible storage.`,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "clipnotes.yaml", "path to the YAML config file")
}
