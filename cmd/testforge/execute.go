package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExecuteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <test-id>",
		Short: "Run a stored test once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			exec, err := a.executor()
			if err != nil {
				return err
			}

			res, err := exec.Execute(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("test execution failed: %w", err)
			}

			cmd.Println(res.Output)
			cmd.Printf("\nInstance: %s\n", res.InstanceID)
			cmd.Printf("Progress: %d/%d steps (%.1f%%)\n", res.Progress.StepsCompleted, res.Progress.TotalSteps, res.Progress.Percentage)
			if !res.Success {
				return fmt.Errorf("test %s failed", args[0])
			}
			cmd.Println("PASSED")
			return nil
		},
	}
}
