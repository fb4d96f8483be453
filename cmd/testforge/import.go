package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/testforge/pkg/storage"
)

func newImportCommand(flags *globalFlags) *cobra.Command {
	var plan []string
	var targetURL string

	cmd := &cobra.Command{
		Use:   "import <test-id> <script-file>",
		Short: "Store an existing Playwright script for execute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.store.Put(cmd.Context(), &storage.StoredTest{
				ID:        args[0],
				Script:    string(script),
				Plan:      plan,
				TargetURL: targetURL,
			})
			if err != nil {
				return err
			}
			cmd.Printf("Stored test %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&plan, "step", nil, "Planned step (repeatable); defaults to the script's successful_step markers")
	cmd.Flags().StringVar(&targetURL, "url", "", "Target URL the test covers")
	return cmd
}
