package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, LocalURL, cfg.JSONRPCURL)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, uint64(5), cfg.MaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GenesisHash)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "powfaucet", "id.json"), cfg.KeypairPath)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
json_rpc_url: dev
keypair_path: /keys/payer.json
workers: 3
min_difficulty: 2
log_level: debug
`)
	t.Setenv("POWFAUCET_LOG_LEVEL", "warn")
	t.Setenv("POWFAUCET_MAX_RETRIES", "9")

	cfg, err := Load(path, map[string]interface{}{
		KeyWorkers:     7,
		KeyKeypairPath: "",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.devnet.solana.com", cfg.JSONRPCURL)
	assert.Equal(t, "/keys/payer.json", cfg.KeypairPath, "empty override must not mask the file")
	assert.Equal(t, 7, cfg.Workers, "override beats file")
	assert.Equal(t, uint8(2), cfg.MinDifficulty)
	assert.Equal(t, "warn", cfg.LogLevel, "env beats file")
	assert.Equal(t, uint64(9), cfg.MaxRetries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"), nil)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownCommitment(t *testing.T) {
	path := writeConfig(t, "commitment: eventually\n")
	_, err := Load(path, nil)
	assert.Error(t, err)

	cfg, err := Load(path, map[string]interface{}{KeyCommitment: "finalized"})
	require.NoError(t, err)
	assert.Equal(t, "finalized", cfg.Commitment)
}

func TestResolveURL(t *testing.T) {
	tests := map[string]string{
		"dev":                    "https://api.devnet.solana.com",
		"d":                      "https://api.devnet.solana.com",
		"main":                   "https://api.mainnet-beta.solana.com",
		"mainnet-beta":           "https://api.mainnet-beta.solana.com",
		"local":                  LocalURL,
		"l":                      LocalURL,
		"http://10.0.0.2:8899":   "http://10.0.0.2:8899",
		"file:///var/lib/ledger": "file:///var/lib/ledger",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveURL(in), in)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/x/y")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), got)

	got, err = ExpandHome("/abs/~/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/~/path", got)
}
