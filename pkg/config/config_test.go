package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/testforge/pkg/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvBaseURL, EnvModel, EnvWorkspaceRoot, EnvDBPath} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30, cfg.LLM.MaxTurns)
	assert.Equal(t, "playwright_test_", cfg.Workspace.Prefix)
	assert.Equal(t, []string{"npm", "install"}, cfg.Runner.InstallCommand)
	assert.Equal(t, []string{"npm", "run", "test"}, cfg.Runner.TestCommand)
	assert.Equal(t, 120*time.Second, cfg.Runner.InstallTimeout())
	assert.Equal(t, 60*time.Second, cfg.Runner.TestTimeout())
	assert.Equal(t, "node_modules", cfg.Runner.DependencyDir)
	assert.ElementsMatch(t, []string{"browser_data", "tests/node_modules"}, cfg.Workspace.PrunePatterns)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "testforge.yaml", `
llm:
  model: gpt-4o-mini
  max_turns: 12
  instructions: |
    Log in as demo@shop.test before each test.
workspace:
  root: /srv/testforge
runner:
  test_timeout_seconds: 90
server:
  addr: ":9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 12, cfg.LLM.MaxTurns)
	assert.Equal(t, "Log in as demo@shop.test before each test.\n", cfg.LLM.Instructions)
	assert.Equal(t, "/srv/testforge", cfg.Workspace.Root)
	assert.Equal(t, 90*time.Second, cfg.Runner.TestTimeout())
	// Unset values keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Runner.InstallTimeout())
	assert.Equal(t, "playwright_test_", cfg.Workspace.Prefix)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "testforge.toml", `
[llm]
model = "local-model"
base_url = "http://localhost:8080/v1"

[runner]
install_command = ["pnpm", "install"]
install_timeout_seconds = 300

[storage]
db_path = "/var/lib/testforge/tests.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
	assert.Equal(t, []string{"pnpm", "install"}, cfg.Runner.InstallCommand)
	assert.Equal(t, 300*time.Second, cfg.Runner.InstallTimeout())
	assert.Equal(t, "/var/lib/testforge/tests.db", cfg.Storage.DBPath)
	assert.Equal(t, 30, cfg.LLM.MaxTurns)
}

func TestLoadEmptyPathUsesDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "sk-env")
	t.Setenv(EnvBaseURL, "https://proxy.example.com/v1")
	t.Setenv(EnvWorkspaceRoot, "/tmp/ws")
	t.Setenv(EnvDBPath, "/tmp/tests.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "/tmp/ws", cfg.Workspace.Root)
	assert.Equal(t, "/tmp/tests.db", cfg.Storage.DBPath)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "sk-env")
	path := writeFile(t, "testforge.yml", "llm:\n  api_key: sk-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "llm: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing yaml config")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.toml", "[llm\nmodel ="))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing toml config")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeFile(t, "neg.yaml", "llm:\n  max_turns: -1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_turns")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero turns", mutate: func(c *Config) { c.LLM.MaxTurns = 0 }, wantErr: true},
		{name: "empty root", mutate: func(c *Config) { c.Workspace.Root = "" }, wantErr: true},
		{name: "prefix with slash", mutate: func(c *Config) { c.Workspace.Prefix = "a/b" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Runner.TestTimeoutSeconds = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.RequireAPIKey()
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindConfiguration))

	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestBuildProvider(t *testing.T) {
	clearEnv(t)

	_, err := BuildProvider(LLMConfig{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	provider, err := BuildProvider(LLMConfig{Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: "http://localhost:1234/v1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", provider.GetModel())
	assert.Equal(t, "http://localhost:1234/v1", provider.GetBaseURL())
	assert.Equal(t, "sk-test", provider.GetAPIKey())
}
