// Todo Evolution - a todo list that grows from a console app into a
// multi-user HTTP service.
//
//	todo console   run the interactive menu over in-memory storage
//	todo serve     run the HTTP API with persistence and JWT auth
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "todo",
	Short:        "todo - task manager with console and HTTP front ends",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newConsoleCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
