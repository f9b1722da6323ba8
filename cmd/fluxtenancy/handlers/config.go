package handlers

import (
	"fmt"

	"github.com/imamik/fluxtenancy/internal/config"
)

var (
	// loadConfigFile loads and validates a config file.
	loadConfigFile = config.Load

	// findConfigFile searches for fluxtenancy.yaml from the working directory up.
	findConfigFile = config.FindConfigFile
)

// loadConfig loads the config at configPath, or the nearest fluxtenancy.yaml
// when configPath is empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		path, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file found: %w\nRun 'fluxtenancy init' to create one", err)
		}
		configPath = path
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}
