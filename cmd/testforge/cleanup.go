package main

import (
	"github.com/spf13/cobra"
)

func newCleanupCommand(flags *globalFlags) *cobra.Command {
	var keepTests bool

	cmd := &cobra.Command{
		Use:   "cleanup <instance-id>",
		Short: "Remove an instance workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.workspaces.Cleanup(args[0], keepTests)
			if err != nil {
				return err
			}
			if res.WholeTree {
				cmd.Printf("Removed workspace for instance %s\n", args[0])
				return nil
			}
			cmd.Printf("Cleaned workspace for instance %s, kept tests (%d paths removed)\n", args[0], len(res.Removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepTests, "keep-tests", false, "Only remove browser data and installed dependencies")
	return cmd
}
