package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/testforge/pkg/server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string
	var discardOnError bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			gen, err := a.generator()
			if err != nil {
				return err
			}
			exec, err := a.executor()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(gen, exec, a.workspaces,
				server.WithLogger(a.logger),
				server.WithDiscardOnError(discardOnError),
			)

			cmd.Printf("testforge %s listening on %s (workspaces in %s)\n", version, addr, a.workspaces.Root())
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8000)")
	cmd.Flags().BoolVar(&discardOnError, "discard-failed", false, "Remove the workspace of a failed generation")
	return cmd
}
