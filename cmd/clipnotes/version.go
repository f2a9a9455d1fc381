package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clipnotes version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clipnotes", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
