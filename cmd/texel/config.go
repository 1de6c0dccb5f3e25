package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"texel/internal/config"
)

// loadConfig resolves the effective configuration: --config wins, then
// texel.toml in the working directory, then the built-in defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load("texel.toml")
	if err == nil {
		return cfg, nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Config{}, fmt.Errorf("texel.toml: %w", err)
}
