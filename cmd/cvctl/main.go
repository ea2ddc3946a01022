package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/cli"
)

func main() {
	command := NewCvctlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCvctlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cvctl [flags] [options]",
		Short: "cvctl submits CVs to the CV analysis service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdLogin())
	cmd.AddCommand(cli.NewCmdAnalyze())
	cmd.AddCommand(cli.NewCmdStatus())
	cmd.AddCommand(cli.NewCmdResults())

	return cmd
}
