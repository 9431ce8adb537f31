package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestLoadConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := LoadConfig(tempDir)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfigUnmarshalsOverrides(t *testing.T) {
	tempDir := t.TempDir()

	override := RunConfig{
		Resources: ResourceConfig{TotalCores: 64, CoresPerNode: 32},
		Batch:     BatchConfig{Adapter: BatchAdapterSlurm, MaxConcurrent: 8},
	}
	data, err := yaml.Marshal(&override)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(filepath.Join(tempDir, configFileName), data, 0o644))

	cfg, err := LoadConfig(tempDir)
	assert.NoError(t, err)
	assert.Equal(t, 64, cfg.Resources.TotalCores)
	assert.Equal(t, BatchAdapterSlurm, cfg.Batch.Adapter)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(tempDir, configFileName), []byte("resources: [not a map"), 0o644))

	_, err := LoadConfig(tempDir)
	assert.Error(t, err)
}
