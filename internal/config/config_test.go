package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Model:         DefaultModel,
		ImageModel:    DefaultImageModel,
		Temperature:   0.7,
		APIKey:        "test-key",
		MaxIterations: 10,
		ProjectRoot:   ".",
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateMissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.APIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestValidateTemperatureRange(t *testing.T) {
	for _, temp := range []float32{-0.1, 2.1} {
		cfg := validConfig()
		cfg.Temperature = temp
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidTemperature, "temperature %v", temp)
	}
	for _, temp := range []float32{0, 1, 2} {
		cfg := validConfig()
		cfg.Temperature = temp
		assert.NoError(t, cfg.Validate(), "temperature %v", temp)
	}
}

func TestValidateMaxIterationsRange(t *testing.T) {
	for _, n := range []int{0, -1, 101} {
		cfg := validConfig()
		cfg.MaxIterations = n
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxIterations, "max iterations %d", n)
	}
}

func TestValidateEmptyProjectRoot(t *testing.T) {
	cfg := validConfig()
	cfg.ProjectRoot = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidProjectRoot)
}

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, float32(0.7), cfg.Temperature)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, "src", cfg.SourceDir)
	assert.Equal(t, "nextlive/chats", cfg.ChatsDir)
	assert.Equal(t, "public/images", cfg.ImagesDir)
	assert.Equal(t, 5*time.Minute, cfg.CommandTimeout)
	assert.Contains(t, cfg.SkipDirs, "node_modules")
	assert.Contains(t, cfg.FileExtensions, ".tsx")
}

func TestLoadEnvOverridesModel(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("NEXTLIVE_MODEL", "gemini-exp")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-exp", cfg.Model)
}

func TestLoadStorageWithoutAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadStorage()
	require.NoError(t, err)
	assert.Equal(t, "nextlive/chats", cfg.ChatsDir)
}

func TestLoadStorageKeepsConfiguredChatsDir(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nextlive.yaml"),
		[]byte("chats_dir: archive/conversations\n"), 0o600))
	t.Chdir(dir)

	cfg, err := LoadStorage()
	require.NoError(t, err)
	assert.Equal(t, "archive/conversations", cfg.ChatsDir)
}

func TestLoadFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
