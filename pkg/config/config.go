// Package config loads testforge settings from an optional YAML or TOML file,
// applies environment overrides and fills in defaults.
//
// Precedence, highest first: CLI flags (applied by the caller), environment
// variables, config file, defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/testforge/pkg/types"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvBaseURL       = "OPENAI_BASE_URL"
	EnvModel         = "TESTFORGE_MODEL"
	EnvWorkspaceRoot = "TESTFORGE_WORKSPACE_ROOT"
	EnvDBPath        = "TESTFORGE_DB_PATH"
)

// Config is the complete testforge configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Workspace WorkspaceConfig `yaml:"workspace" toml:"workspace"`
	Runner    RunnerConfig    `yaml:"runner" toml:"runner"`
	Browser   BrowserConfig   `yaml:"browser" toml:"browser"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// LLMConfig configures the OpenAI-compatible provider and the agent loop.
type LLMConfig struct {
	Model    string `yaml:"model" toml:"model"`
	BaseURL  string `yaml:"base_url" toml:"base_url"`
	APIKey   string `yaml:"api_key" toml:"api_key"`
	MaxTurns int    `yaml:"max_turns" toml:"max_turns"`

	// Instructions are added to the system prompt of every generation,
	// e.g. login details or conventions for the target application.
	Instructions string `yaml:"instructions" toml:"instructions"`
}

// WorkspaceConfig configures where instance workspaces live.
type WorkspaceConfig struct {
	// Root is the parent directory of every instance workspace.
	Root string `yaml:"root" toml:"root"`
	// Prefix is prepended to the instance id to form the directory name.
	Prefix string `yaml:"prefix" toml:"prefix"`
	// TemplateDir holds playwright.config.js and package.json. Empty means
	// the built-in templates.
	TemplateDir string `yaml:"template_dir" toml:"template_dir"`
	// PrunePatterns are removed by a cleanup that keeps test artifacts.
	PrunePatterns []string `yaml:"prune_patterns" toml:"prune_patterns"`
}

// RunnerConfig configures the package manager and test runner subprocesses.
type RunnerConfig struct {
	InstallCommand        []string `yaml:"install_command" toml:"install_command"`
	TestCommand           []string `yaml:"test_command" toml:"test_command"`
	DependencyDir         string   `yaml:"dependency_dir" toml:"dependency_dir"`
	InstallTimeoutSeconds int      `yaml:"install_timeout_seconds" toml:"install_timeout_seconds"`
	TestTimeoutSeconds    int      `yaml:"test_timeout_seconds" toml:"test_timeout_seconds"`
}

// BrowserConfig configures the exploration browser.
type BrowserConfig struct {
	Enabled               bool `yaml:"enabled" toml:"enabled"`
	Headless              bool `yaml:"headless" toml:"headless"`
	StartupTimeoutSeconds int  `yaml:"startup_timeout_seconds" toml:"startup_timeout_seconds"`
}

// StorageConfig configures the persisted test store.
type StorageConfig struct {
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	// CleanupAfterExecute removes the workspace after a direct execution.
	CleanupAfterExecute bool `yaml:"cleanup_after_execute" toml:"cleanup_after_execute"`
}

// LoggingConfig configures process logs.
type LoggingConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Model:    "gpt-4o",
			MaxTurns: 30,
		},
		Workspace: WorkspaceConfig{
			Root:          os.TempDir(),
			Prefix:        "playwright_test_",
			PrunePatterns: []string{"browser_data", "tests/node_modules"},
		},
		Runner: RunnerConfig{
			InstallCommand:        []string{"npm", "install"},
			TestCommand:           []string{"npm", "run", "test"},
			DependencyDir:         "node_modules",
			InstallTimeoutSeconds: 120,
			TestTimeoutSeconds:    60,
		},
		Browser: BrowserConfig{
			Enabled:               true,
			Headless:              true,
			StartupTimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DBPath: "testforge.db",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}

// Load reads a config file, decoding it as TOML when the extension is .toml
// and as YAML otherwise, then applies environment overrides. An empty path
// yields the defaults plus environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("parsing toml config: %w", err)
			}
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing yaml config: %w", err)
			}
		}
	}

	cfg.ApplyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(EnvWorkspaceRoot); v != "" {
		c.Workspace.Root = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
}

// applyDefaults fills zero values a partial file may have left behind.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.MaxTurns == 0 {
		c.LLM.MaxTurns = def.LLM.MaxTurns
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = def.Workspace.Root
	}
	if len(c.Runner.InstallCommand) == 0 {
		c.Runner.InstallCommand = def.Runner.InstallCommand
	}
	if len(c.Runner.TestCommand) == 0 {
		c.Runner.TestCommand = def.Runner.TestCommand
	}
	if c.Runner.DependencyDir == "" {
		c.Runner.DependencyDir = def.Runner.DependencyDir
	}
	if c.Runner.InstallTimeoutSeconds == 0 {
		c.Runner.InstallTimeoutSeconds = def.Runner.InstallTimeoutSeconds
	}
	if c.Runner.TestTimeoutSeconds == 0 {
		c.Runner.TestTimeoutSeconds = def.Runner.TestTimeoutSeconds
	}
	if c.Browser.StartupTimeoutSeconds == 0 {
		c.Browser.StartupTimeoutSeconds = def.Browser.StartupTimeoutSeconds
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = def.Storage.DBPath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

// Validate checks structural settings. A missing API key is not a structural
// problem: only generation needs it, see RequireAPIKey.
func (c *Config) Validate() error {
	if c.LLM.MaxTurns < 1 {
		return fmt.Errorf("llm.max_turns must be positive, got %d", c.LLM.MaxTurns)
	}
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace.root must be set")
	}
	if strings.ContainsAny(c.Workspace.Prefix, `/\`) {
		return fmt.Errorf("workspace.prefix must not contain path separators: %q", c.Workspace.Prefix)
	}
	if c.Runner.InstallTimeoutSeconds < 0 || c.Runner.TestTimeoutSeconds < 0 {
		return fmt.Errorf("runner timeouts must not be negative")
	}
	if c.Browser.StartupTimeoutSeconds < 0 {
		return fmt.Errorf("browser.startup_timeout_seconds must not be negative")
	}
	return nil
}

// RequireAPIKey returns a ConfigurationError when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return types.ConfigurationError("OPENAI_API_KEY is not set")
	}
	return nil
}

// InstallTimeout returns the dependency install deadline.
func (r RunnerConfig) InstallTimeout() time.Duration {
	return time.Duration(r.InstallTimeoutSeconds) * time.Second
}

// TestTimeout returns the test run deadline.
func (r RunnerConfig) TestTimeout() time.Duration {
	return time.Duration(r.TestTimeoutSeconds) * time.Second
}

// StartupTimeout returns the browser launch deadline.
func (b BrowserConfig) StartupTimeout() time.Duration {
	return time.Duration(b.StartupTimeoutSeconds) * time.Second
}
