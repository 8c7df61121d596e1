package logging

import (
	"os"
	"path/filepath"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/damianoneill/netconf-tasks/config"
)

func TestLogFileReceivesOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, cleanup, err := New(config.Logging{Level: "debug", LogFile: logFile})
	assert.NoError(t, err, "Not expecting logger creation to fail")

	logger.Debug("diagnostic message")
	cleanup()

	content, err := os.ReadFile(logFile)
	assert.NoError(t, err, "Expecting log file to exist")
	assert.Contains(t, string(content), "diagnostic message")
}

func TestLevelFiltersOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := New(config.Logging{Level: "warn", LogFile: logFile, Format: "console"})
	assert.NoError(t, err)

	logger.Info("filtered")
	logger.Warn("retained")
	cleanup()

	content, err := os.ReadFile(logFile)
	assert.NoError(t, err)
	assert.NotContains(t, string(content), "filtered")
	assert.Contains(t, string(content), "retained")
}

func TestDisabled(t *testing.T) {
	logger, cleanup, err := New(config.Logging{Disabled: true, Level: "nonsense"})
	assert.NoError(t, err)
	assert.NotNil(t, logger)
	cleanup()
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := New(config.Logging{Level: "loud"})
	assert.Error(t, err, "Expecting invalid level to be rejected")

	_, _, err = New(config.Logging{Level: "info", Format: "xml"})
	assert.Error(t, err, "Expecting invalid format to be rejected")
}
