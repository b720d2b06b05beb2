// Package config loads CLI and daemon settings from defaults, a YAML file,
// POWFAUCET_* environment variables and explicit overrides, in increasing
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Setting keys. The same names are used in the YAML file, and upper-cased
// with the POWFAUCET_ prefix in the environment.
const (
	KeyJSONRPCURL    = "json_rpc_url"
	KeyKeypairPath   = "keypair_path"
	KeyCommitment    = "commitment"
	KeyWorkers       = "workers"
	KeyMaxRetries    = "max_retries"
	KeyMinDifficulty = "min_difficulty"
	KeyGenesisHash   = "genesis_hash"
	KeyLogLevel      = "log_level"
	KeyMetricsAddr   = "metrics_addr"
	KeyListenAddr    = "listen_addr"
	KeyLedgerDir     = "ledger_dir"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POWFAUCET"

// LocalURL is where ledgerd listens by default.
const LocalURL = "http://localhost:8899"

// Config is the resolved configuration.
type Config struct {
	JSONRPCURL    string `mapstructure:"json_rpc_url"`
	KeypairPath   string `mapstructure:"keypair_path"`
	Commitment    string `mapstructure:"commitment"`
	Workers       int    `mapstructure:"workers"`
	MaxRetries    uint64 `mapstructure:"max_retries"`
	MinDifficulty uint8  `mapstructure:"min_difficulty"`
	GenesisHash   string `mapstructure:"genesis_hash"`
	LogLevel      string `mapstructure:"log_level"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
	ListenAddr    string `mapstructure:"listen_addr"`
	LedgerDir     string `mapstructure:"ledger_dir"`
}

var defaults = map[string]interface{}{
	KeyJSONRPCURL:    LocalURL,
	KeyKeypairPath:   "~/.config/powfaucet/id.json",
	KeyCommitment:    "confirmed",
	KeyWorkers:       0,
	KeyMaxRetries:    5,
	KeyMinDifficulty: 0,
	KeyGenesisHash:   "",
	KeyLogLevel:      "info",
	KeyMetricsAddr:   "",
	KeyListenAddr:    ":8899",
	KeyLedgerDir:     "~/.config/powfaucet/ledger",
}

// DefaultPath is the config file read when none is given explicitly.
func DefaultPath() string {
	return filepath.Join("~", ".config", "powfaucet", "config.yml")
}

// Load resolves the configuration. An explicitly named file must exist; the
// default file is optional. Overrides with empty or zero values are ignored,
// so unset CLI flags do not mask lower layers.
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	file, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(file); statErr == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	} else if explicit {
		return nil, errors.Wrapf(statErr, "config file %s", file)
	}

	for key, value := range overrides {
		if isZero(value) {
			continue
		}
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.JSONRPCURL = ResolveURL(cfg.JSONRPCURL)
	if err := ValidateCommitment(cfg.Commitment); err != nil {
		return nil, err
	}
	if cfg.KeypairPath, err = ExpandHome(cfg.KeypairPath); err != nil {
		return nil, err
	}
	if cfg.LedgerDir, err = ExpandHome(cfg.LedgerDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveURL maps the short network names accepted by --url to endpoints.
// Anything else is returned unchanged.
func ResolveURL(s string) string {
	switch s {
	case "devnet", "dev", "d":
		return "https://api.devnet.solana.com"
	case "mainnet", "main", "m", "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "localnet", "localhost", "l", "local":
		return LocalURL
	}
	return s
}

// Commitment levels accepted by --commitment. The dev ledger commits
// synchronously, so all three observe the same state.
var commitments = map[string]bool{"processed": true, "confirmed": true, "finalized": true}

// ValidateCommitment rejects unknown commitment levels.
func ValidateCommitment(level string) error {
	if !commitments[level] {
		return errors.Newf("unknown commitment %q, want processed, confirmed or finalized", level)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func isZero(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case uint64:
		return v == 0
	case uint8:
		return v == 0
	}
	return false
}
