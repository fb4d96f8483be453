package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/testforge/pkg/generator"
)

func newGenerateCommand(flags *globalFlags) *cobra.Command {
	var instanceID, output string
	var save, asJSON bool

	cmd := &cobra.Command{
		Use:   "generate <target-url> <test-case-description>",
		Short: "Generate a test for one scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, save)
			if err != nil {
				return err
			}
			defer a.Close()

			gen, err := a.generator()
			if err != nil {
				return err
			}

			res, err := gen.Generate(cmd.Context(), generator.Request{
				TargetURL:   args[0],
				Description: args[1],
				InstanceID:  instanceID,
			})
			if err != nil {
				return fmt.Errorf("test generation failed: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(res.Script), 0600); err != nil {
					return fmt.Errorf("failed to write script: %w", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"instance_id": res.InstanceID,
					"status":      res.Status,
					"passed":      res.Passed,
					"test_plan":   res.Plan,
					"test_script": res.Script,
					"workspace":   res.Workspace,
				})
			}

			cmd.Printf("Status: %s (last run passed: %v)\n", res.Status, res.Passed)
			cmd.Printf("Workspace: %s\n", res.Workspace)
			cmd.Printf("Tokens: %d over %d tool calls\n\n", res.Usage.TotalTokens, len(res.ToolCalls))
			cmd.Println("Test plan:")
			for i, step := range res.Plan {
				cmd.Printf("  %d. %s\n", i+1, step)
			}
			if output == "" {
				cmd.Printf("\n%s\n", strings.TrimSpace(res.Script))
			} else {
				cmd.Printf("\nScript written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&instanceID, "instance-id", "", "Instance id (default: random)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the script to this file")
	cmd.Flags().BoolVar(&save, "save", false, "Store the test so it can be run with execute")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
