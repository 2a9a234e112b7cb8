package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/artifactresolver/cli/log"
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	log.RegisterLoggingFlags(cmd.PersistentFlags())
	return cmd
}

func TestDefaults(t *testing.T) {
	cmd := newCommand()
	level, err := log.GetLoggerLevel(cmd)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	assert.Equal(t, "text", cmd.Flag(log.FlagFormat).Value.String())
}

func TestLevels(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		t.Run(name, func(t *testing.T) {
			cmd := newCommand()
			require.NoError(t, cmd.PersistentFlags().Set(log.FlagLevel, name))
			level, err := log.GetLoggerLevel(cmd)
			require.NoError(t, err)
			assert.Equal(t, want, level)
		})
	}
}

func TestInvalidValues(t *testing.T) {
	cmd := newCommand()
	assert.Error(t, cmd.PersistentFlags().Set(log.FlagLevel, "fatal"))
	assert.Error(t, cmd.PersistentFlags().Set(log.FlagFormat, "xml"))
}

func TestJSONLogger(t *testing.T) {
	cmd := newCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)
	require.NoError(t, cmd.PersistentFlags().Set(log.FlagFormat, "json"))
	require.NoError(t, cmd.PersistentFlags().Set(log.FlagLevel, "info"))

	logger, err := log.GetBaseLogger(cmd)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "realm", "test")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
