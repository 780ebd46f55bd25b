package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Shredder.ChunkSize)
	assert.Equal(t, 200, cfg.Shredder.Overlap)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, 7, cfg.Cache.ScannedMultiplier)
	assert.Equal(t, 100_000, cfg.Extractor.MaxContentChars)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solicit.yaml")
	yml := `
shredder:
  chunkSize: 1500
batch:
  maxConcurrency: 9
  retryDelay: 3s
cache:
  defaultTTL: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv(configPathEnv, path)
	t.Setenv("BATCH_MAX_CONCURRENCY", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1500, cfg.Shredder.ChunkSize)
	assert.Equal(t, 200, cfg.Shredder.Overlap, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Batch.MaxConcurrency, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true), "openai provider needs an api key")

	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate(true))

	cfg.Shredder.Overlap = cfg.Shredder.ChunkSize
	err := cfg.Validate(false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindContentUnavailable, Kind(ContentUnavailable("a.pdf", errors.New("boom"))))
	assert.Equal(t, KindOracleFailure, Kind(OracleFailure("timeout", nil)))
	assert.Equal(t, KindSchemaValidation, Kind(WrapError(SchemaValidationFailure("sow", errors.New("x")), "extract")))
	assert.Equal(t, KindUnknown, Kind(errors.New("other")))
	assert.Equal(t, ErrorKind(""), Kind(nil))
}
