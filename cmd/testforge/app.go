package main

import (
	"fmt"

	"github.com/entrhq/testforge/pkg/agent"
	"github.com/entrhq/testforge/pkg/capture"
	"github.com/entrhq/testforge/pkg/config"
	"github.com/entrhq/testforge/pkg/executor"
	"github.com/entrhq/testforge/pkg/generator"
	"github.com/entrhq/testforge/pkg/llm/tokenizer"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/runner"
	"github.com/entrhq/testforge/pkg/storage"
	"github.com/entrhq/testforge/pkg/tools/browser"
	"github.com/entrhq/testforge/pkg/workspace"
)

// app holds the components built from the resolved configuration.
type app struct {
	cfg        config.Config
	logger     *logging.Logger
	workspaces *workspace.Manager
	runner     *runner.Runner
	store      *storage.Storage
	browser    *browser.PlaywrightProvider
}

// loadConfig resolves file, environment and flag settings, flags winning.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.apiKey != "" {
		cfg.LLM.APIKey = flags.apiKey
	}
	if flags.baseURL != "" {
		cfg.LLM.BaseURL = flags.baseURL
	}
	if flags.model != "" {
		cfg.LLM.Model = flags.model
	}
	if flags.workspaceRoot != "" {
		cfg.Workspace.Root = flags.workspaceRoot
	}
	if flags.dbPath != "" {
		cfg.Storage.DBPath = flags.dbPath
	}
	return cfg, cfg.Validate()
}

// newApp builds the shared components. The test store is opened only when
// withStore is set.
func newApp(flags *globalFlags, withStore bool) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDirectory(cfg.Logging.Dir)
	}
	logger, err := logging.NewLogger("testforge")
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	opts := []workspace.Option{workspace.WithPrefix(cfg.Workspace.Prefix)}
	if cfg.Workspace.TemplateDir != "" {
		opts = append(opts, workspace.WithTemplateDir(cfg.Workspace.TemplateDir))
	}
	workspaces, err := workspace.NewManager(cfg.Workspace.Root, cfg.Workspace.PrunePatterns, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace manager: %w", err)
	}

	r := runner.New(
		runner.WithInstallCommand(cfg.Runner.InstallCommand...),
		runner.WithTestCommand(cfg.Runner.TestCommand...),
		runner.WithDependencyDir(cfg.Runner.DependencyDir),
		runner.WithInstallTimeout(cfg.Runner.InstallTimeout()),
		runner.WithTestTimeout(cfg.Runner.TestTimeout()),
	)

	a := &app{cfg: cfg, logger: logger, workspaces: workspaces, runner: r}

	if withStore {
		store, err := storage.New(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open test store: %w", err)
		}
		a.store = store
	}

	if cfg.Browser.Enabled {
		a.browser = browser.NewPlaywrightProvider(browser.Options{
			Headless:       cfg.Browser.Headless,
			StartupTimeout: cfg.Browser.StartupTimeout(),
		})
	}
	return a, nil
}

// generator builds the agent loop driver. A missing API key is reported by
// Generate itself so the server can still start and serve executions.
func (a *app) generator() (*generator.Generator, error) {
	rtOpts := []agent.RuntimeOption{agent.WithLogger(a.logger)}
	opts := []generator.Option{generator.WithLogger(a.logger)}
	if tok, err := tokenizer.New(); err == nil {
		rtOpts = append(rtOpts, agent.WithTokenizer(tok))
		opts = append(opts, generator.WithTokenizer(tok))
	} else {
		a.logger.Warnf("token counts will be estimated: %v", err)
	}

	var rt agent.Runtime = unconfiguredRuntime{}
	if a.cfg.LLM.APIKey != "" {
		provider, err := config.BuildProvider(a.cfg.LLM)
		if err != nil {
			return nil, err
		}
		rt = agent.NewDefaultRuntime(provider, rtOpts...)
	}
	if a.browser != nil {
		opts = append(opts, generator.WithBrowser(a.browser))
	}
	if a.store != nil {
		opts = append(opts, generator.WithSaver(a.store))
	}

	return generator.New(generator.Config{
		APIKey:       a.cfg.LLM.APIKey,
		MaxTurns:     a.cfg.LLM.MaxTurns,
		Instructions: a.cfg.LLM.Instructions,
	}, rt, a.workspaces, a.runner, capture.NewStore(), opts...)
}

func (a *app) executor() (*executor.Executor, error) {
	return executor.New(a.store, a.workspaces, a.runner,
		executor.WithLogger(a.logger),
		executor.WithCleanupAfter(a.cfg.Server.CleanupAfterExecute),
	)
}

func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Shutdown(); err != nil {
			a.logger.Warnf("stopping playwright: %v", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	a.logger.Close()
}
