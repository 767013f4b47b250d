package execx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run(t *testing.T) {
	runner := NewRealRunner()
	ctx := context.Background()

	t.Run("successful command execution", func(t *testing.T) {
		res, err := runner.Run(ctx, CommandSpec{Name: "echo", Args: []string{"hello", "world"}})
		require.NoError(t, err)
		assert.Contains(t, res.Stdout, "hello world")
	})

	t.Run("command not found", func(t *testing.T) {
		_, err := runner.Run(ctx, CommandSpec{Name: "nonexistent-command-12345"})
		assert.Error(t, err)
	})

	t.Run("command with error exit code", func(t *testing.T) {
		res, err := runner.Run(ctx, CommandSpec{Name: "sh", Args: []string{"-c", "exit 1"}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ExitCode)
	})
}
