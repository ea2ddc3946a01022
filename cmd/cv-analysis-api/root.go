package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "cv-analysis-api",
	Short: "cv-analysis-api runs the CV analysis service.",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}
