package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toptracks.log")

	logger, closeLog := setupLogger(path, "info")
	logger.Info().Str("user", "rj").Msg("Report started")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Report started"`)

	// The handle is gone after close.
	assert.Error(t, closeLog())
}

func TestSetupLoggerStderr(t *testing.T) {
	_, closeLog := setupLogger("", "debug")
	assert.NoError(t, closeLog())
}
