package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vvtest/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/vvtest"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns $HOME/.config/vvtest, the directory
// LoadConfig looks in when no explicit path is given.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath, falling back to defaults
// when the file is absent rather than failing the run.
func LoadConfig(configPath string) (RunConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return RunConfig{}, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return RunConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)

	return config, nil
}
