package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSnowflakeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAccount, EnvUser, EnvRole, EnvWarehouse,
		EnvDatabase, EnvKeyPath, EnvKeyPassphrase,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearSnowflakeEnv(t)

	cfg := FromEnv()
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultKeyPath, cfg.KeyPath)
	assert.False(t, cfg.Complete())
}

func TestFromEnvReadsVariables(t *testing.T) {
	clearSnowflakeEnv(t)
	t.Setenv(EnvAccount, "abc123.eu-central-1")
	t.Setenv(EnvUser, "MONITOR")
	t.Setenv(EnvRole, "MONITOR_ROLE")
	t.Setenv(EnvWarehouse, "COMPUTE_WH")
	t.Setenv(EnvKeyPath, "/keys/rsa_key.p8")

	cfg := FromEnv()
	assert.True(t, cfg.Complete())
	assert.Equal(t, "abc123.eu-central-1", cfg.Account)
	assert.Equal(t, "/keys/rsa_key.p8", cfg.KeyPath)
}

func TestLoadEnvFileOverwritesEnvironment(t *testing.T) {
	clearSnowflakeEnv(t)
	t.Setenv(EnvAccount, "from-environment")

	path := filepath.Join(t.TempDir(), ".env")
	content := "# connection settings\n\nSNOWFLAKE_ACCOUNT=from-file\nSNOWFLAKE_USER=MONITOR\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	require.NoError(t, LoadEnvFile(path))

	// File values take precedence over pre-existing environment variables.
	assert.Equal(t, "from-file", os.Getenv(EnvAccount))
	assert.Equal(t, "MONITOR", os.Getenv(EnvUser))
}

func TestLoadEnvFileMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}

func TestResolveCompleteSkipsPrompts(t *testing.T) {
	cfg := &Config{
		Account:   "abc123",
		User:      "MONITOR",
		Role:      "MONITOR_ROLE",
		Warehouse: "COMPUTE_WH",
	}

	var out bytes.Buffer
	// Empty input: Resolve must not consume it when config is complete.
	require.NoError(t, cfg.Resolve(strings.NewReader(""), &out))

	assert.Contains(t, out.String(), "loaded from environment")
	assert.NotContains(t, out.String(), "Please provide")
	assert.Equal(t, "abc123", cfg.Account)
}

func TestResolvePromptsForMissingFields(t *testing.T) {
	cfg := &Config{Account: "abc123"}

	// Blank line keeps the env-provided account; the rest get typed in.
	in := strings.NewReader("\nMONITOR\nMONITOR_ROLE\nCOMPUTE_WH\n")
	var out bytes.Buffer
	require.NoError(t, cfg.Resolve(in, &out))

	assert.Equal(t, "abc123", cfg.Account)
	assert.Equal(t, "MONITOR", cfg.User)
	assert.Equal(t, "MONITOR_ROLE", cfg.Role)
	assert.Equal(t, "COMPUTE_WH", cfg.Warehouse)
	assert.Contains(t, out.String(), "some values loaded from environment")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{
			name: "complete",
			cfg: Config{
				Account: "abc123", User: "MONITOR",
				Role: "MONITOR_ROLE", Warehouse: "COMPUTE_WH",
			},
			missing: nil,
		},
		{
			name:    "all missing",
			cfg:     Config{},
			missing: []string{"ACCOUNT", "USER", "ROLE", "WAREHOUSE"},
		},
		{
			name: "placeholders rejected",
			cfg: Config{
				Account: "your-actual-account.snowflakecomputing.com", User: "your_actual_user",
				Role: "MONITOR_ROLE", Warehouse: "COMPUTE_WH",
			},
			missing: []string{"ACCOUNT", "USER"},
		},
		{
			name: "one missing",
			cfg: Config{
				Account: "abc123", User: "MONITOR", Role: "MONITOR_ROLE",
			},
			missing: []string{"WAREHOUSE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.cfg.Validate())
		})
	}
}
