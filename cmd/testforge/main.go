// Command testforge generates and runs browser end-to-end tests with an LLM
// agent.
//
//	testforge serve                       # HTTP API on :8000
//	testforge generate <url> <description>
//	testforge execute <test-id>
//	testforge cleanup <instance-id> [--keep-tests]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// globalFlags are shared by every command and override the config file.
type globalFlags struct {
	configFile    string
	apiKey        string
	baseURL       string
	model         string
	workspaceRoot string
	dbPath        string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "testforge",
		Short:         "LLM-driven browser E2E test generation",
		Long:          "testforge explores a web application with an LLM agent, writes a Playwright test for a described scenario and iterates until it passes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML or TOML config file")
	pf.StringVar(&flags.apiKey, "api-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	pf.StringVar(&flags.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	pf.StringVar(&flags.model, "model", "", "LLM model to use")
	pf.StringVar(&flags.workspaceRoot, "workspace-root", "", "Parent directory of instance workspaces")
	pf.StringVar(&flags.dbPath, "db", "", "Path to the SQLite test store")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newGenerateCommand(flags))
	rootCmd.AddCommand(newExecuteCommand(flags))
	rootCmd.AddCommand(newCleanupCommand(flags))
	rootCmd.AddCommand(newImportCommand(flags))

	return rootCmd
}
