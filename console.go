package main

import (
	"github.com/example/todo-evolution/console"
	"github.com/example/todo-evolution/modules/task"
	"github.com/spf13/cobra"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run the interactive menu (tasks live in memory until exit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := task.NewTodoService(task.NewMemoryStorage())
			return console.New(svc, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}
}
