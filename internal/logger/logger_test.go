package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	defer func() { os.Stdout = orig }()

	r, w, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")
	os.Stdout = w

	fn()

	err = w.Close()
	require.NoError(t, err, "failed to close stdout pipe")
	out, err := io.ReadAll(r)
	require.NoError(t, err, "failed to read stdout pipe")

	return string(out)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid values", func(t *testing.T) {
		tests := []struct {
			level string
			want  slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"WARN", slog.LevelWarn},
			{"Error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.level, func(t *testing.T) {
				got, err := parseLevelString(tt.level)

				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("unknown value", func(t *testing.T) {
		_, err := parseLevelString("loud")

		require.Error(t, err, "unknown level must be rejected")
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)

		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown environment")
	})

	t.Run("production logs json", func(t *testing.T) {
		out := captureStdout(t, func() {
			l, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)

			l.Info("rows staged", "count", 12)
		})

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &entry), "production output should be one json object")
		require.Equal(t, "rows staged", entry["msg"])
		require.EqualValues(t, 12, entry["count"])
	})

	t.Run("level filters", func(t *testing.T) {
		out := captureStdout(t, func() {
			l, err := New(EnvDevelopment, LevelWarn)
			require.NoError(t, err)

			l.Info("should be dropped")
			l.Warn("should be kept")
		})

		require.NotContains(t, out, "should be dropped")
		require.Contains(t, out, "should be kept")
	})

	t.Run("noop logger is silent", func(t *testing.T) {
		out := captureStdout(t, func() {
			NewNoOpLogger().Error("nothing")
		})

		require.Empty(t, out)
	})
}
