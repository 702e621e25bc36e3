package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeMirrorsToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.log")
	t.Setenv("LOG_FILE", path)

	Initialize("info")
	Logger.Info().Msg("file sink check")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "file sink check")
}

func TestInitializeWithoutLogFile(t *testing.T) {
	t.Setenv("LOG_FILE", "")

	require.NotPanics(t, func() {
		Initialize("debug")
		Logger.Debug().Msg("console only")
	})
}
