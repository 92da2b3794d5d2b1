package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/lexfix/pkg/fixup"
)

var outputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxPasses < 1 {
		return fmt.Errorf("max_passes must be at least 1, got %d", c.MaxPasses)
	}
	if c.BackupSuffix == "" {
		return fmt.Errorf("backup_suffix is required")
	}
	if c.ProgressInterval < 1 {
		return fmt.Errorf("progress_interval must be at least 1, got %d", c.ProgressInterval)
	}
	if c.OutputFormat != "" && !slices.Contains(outputModes, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (available: auto, text, markdown, json)", c.OutputFormat)
	}
	if _, err := fixup.NewChain(c.Fixers.Disable); err != nil {
		return fmt.Errorf("invalid fixers.disable: %w", err)
	}
	return nil
}
