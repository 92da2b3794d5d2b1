// Package config loads the lexfix CLI configuration.
//
// Values are layered, lowest to highest precedence: built-in defaults, the
// lexfix.yaml config file, LEXFIX_* environment variables and command-line
// flags.
package config

import "github.com/leapstack-labs/lexfix/pkg/fixup"

// ConfigFileName is the name of the config file.
const ConfigFileName = "lexfix.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "lexfix.yml"

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "LEXFIX_"

// Default configuration values.
const (
	DefaultStateFile = ".lexfix/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config holds all CLI configuration options.
type Config struct {
	MaxPasses        int          `koanf:"max_passes"`
	BackupSuffix     string       `koanf:"backup_suffix"`
	ProgressInterval int          `koanf:"progress_interval"`
	StatePath        string       `koanf:"state_path"`
	History          bool         `koanf:"history"`
	Verbose          bool         `koanf:"verbose"`
	OutputFormat     string       `koanf:"output"`
	Fixers           FixersConfig `koanf:"fixers"`
}

// FixersConfig selects the fixers applied by the fix command.
type FixersConfig struct {
	// Disable lists fixer names to leave out of the chain.
	Disable []string `koanf:"disable"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		MaxPasses:        fixup.DefaultMaxPasses,
		BackupSuffix:     fixup.DefaultBackupSuffix,
		ProgressInterval: fixup.DefaultProgressInterval,
		StatePath:        DefaultStateFile,
		History:          true,
		OutputFormat:     DefaultOutput,
	}
}
