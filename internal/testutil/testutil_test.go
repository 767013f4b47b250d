package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	assert.NotNil(t, logger)

	// Test that we can call logger methods without panic
	logger.Debug("test debug message")
	logger.Info("test info message")
	logger.Warn("test warn message")
	logger.Error("test error message")
}

func TestSetupTempDir(t *testing.T) {
	tmpDir, cleanup := SetupTempDir(t)

	// Verify directory exists
	assert.DirExists(t, tmpDir)
	assert.Contains(t, tmpDir, "divban-test-")

	// Create a file to verify cleanup works
	testFile := filepath.Join(tmpDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test"), 0600))
	assert.FileExists(t, testFile)

	// Manual cleanup to test it works
	cleanup()
	assert.NoDirExists(t, tmpDir)
}
