// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/internal/config"
)

// captureOutput redirects stdout into a pipe for the duration of a test.
// The returned drain closes the write end, waits for the reader goroutine to
// see EOF, restores stdout and hands back everything written. Draining more
// than once returns the same output; t.Cleanup drains as a safety net.
func captureOutput(t *testing.T) func() string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = buf.ReadFrom(r)
	}()

	var once sync.Once
	drain := func() string {
		once.Do(func() {
			w.Close()
			<-done
			os.Stdout = originalStdout
		})
		return buf.String()
	}
	t.Cleanup(func() { drain() })
	return drain
}

// resetGlobalLogger restores the singleton between tests. The logger is
// process-global, so isolation depends on this.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

func TestInitializeLogger(t *testing.T) {
	t.Run("ConsoleFormatWithColors", func(t *testing.T) {
		resetGlobalLogger()
		drain := captureOutput(t)

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "meander-test",
			Colors: config.ColorConfig{
				Info: "green",
			},
		}
		InitializeLogger(cfg)
		GetLogger().Info("journey starting")
		Sync()

		output := drain()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "journey starting")
		assert.Contains(t, output, colorGreen, "info level should be colorized green")
		assert.Contains(t, output, colorReset)
	})

	t.Run("JSONFormat", func(t *testing.T) {
		resetGlobalLogger()
		drain := captureOutput(t)

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "meander-json",
		}
		InitializeLogger(cfg)
		GetLogger().Warn("step complete", zap.String("journeyID", "abc"))
		Sync()

		var entry map[string]interface{}
		err := json.Unmarshal([]byte(drain()), &entry)
		require.NoError(t, err, "log output should be valid JSON")

		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "meander-json", entry["logger"])
		assert.Equal(t, "step complete", entry["msg"])
		assert.Equal(t, "abc", entry["journeyID"])
	})

	t.Run("WritesToLogFile", func(t *testing.T) {
		resetGlobalLogger()
		tmpFile, err := os.CreateTemp(t.TempDir(), "meander-test-*.log")
		require.NoError(t, err)
		require.NoError(t, tmpFile.Close())

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: tmpFile.Name(),
			MaxSize: 1,
		}
		InitializeLogger(cfg)
		GetLogger().Error("this should go to the file")
		Sync()

		content, err := os.ReadFile(tmpFile.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "this should go to the file")
	})

	t.Run("InitializesOnlyOnce", func(t *testing.T) {
		resetGlobalLogger()
		drain := captureOutput(t)

		InitializeLogger(config.LoggerConfig{Level: "info", ServiceName: "first"})
		logger1 := GetLogger()

		InitializeLogger(config.LoggerConfig{Level: "debug", ServiceName: "second"})
		logger2 := GetLogger()

		assert.Equal(t, logger1, logger2)
		logger2.Info("test")
		Sync()

		output := drain()
		assert.True(t, strings.Contains(output, "first"))
		assert.False(t, strings.Contains(output, "second"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("FallbackBeforeInitialization", func(t *testing.T) {
		resetGlobalLogger()
		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("GlobalAfterInitialization", func(t *testing.T) {
		resetGlobalLogger()
		InitializeLogger(config.LoggerConfig{Level: "info", ServiceName: "global-test"})

		logger := GetLogger()
		assert.Equal(t, globalLogger.Load(), logger)
	})
}
