/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger_test.go
Description: Tests for the logging system. Covers configuration validation, every
format, rotated file output and the explorer formatter.
*/

package logging_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerCreation tests default and file-backed configurations
func TestLoggerCreation(t *testing.T) {
	logger, err := logging.NewLogger(nil)
	require.NoError(t, err)
	assert.Empty(t, logger.LogFile())
	require.NoError(t, logger.Close())

	dir := t.TempDir()
	logger, err = logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  3,
		MaxSizeMB: 1,
		Quiet:     true,
	})
	require.NoError(t, err)

	logger.LogStateDiscovered("state-1234567890", true, 2, nil)
	logger.LogInteraction("state-1", "link:#about", 15*time.Millisecond, errors.New("timeout"))
	logger.LogStats(3, 4, 10, 1, 0.5)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.LogFile())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "State discovered")
	assert.Contains(t, content, "Interaction failed")
	assert.Contains(t, content, "Statistics update")
}

// TestLoggerConfigValidate tests rejected configurations
func TestLoggerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config logging.LoggerConfig
	}{
		{"bad level", logging.LoggerConfig{Level: "loud", Format: logging.LogFormatText}},
		{"bad format", logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "xml"}},
		{"no backups", logging.LoggerConfig{Level: logging.LogLevelInfo, Format: logging.LogFormatText, OutputDir: "x", MaxSizeMB: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.config.Validate())
			_, err := logging.NewLogger(&tt.config)
			assert.Error(t, err)
		})
	}
	assert.NoError(t, logging.DefaultLoggerConfig().Validate())
}

// TestLogFormats tests that every format initialises
func TestLogFormats(t *testing.T) {
	for _, format := range []logging.LogFormat{logging.LogFormatText, logging.LogFormatJSON, logging.LogFormatCustom} {
		t.Run(string(format), func(t *testing.T) {
			logger, err := logging.NewLogger(&logging.LoggerConfig{
				Level:  logging.LogLevelInfo,
				Format: format,
				Quiet:  true,
			})
			require.NoError(t, err)
			assert.NotNil(t, logger.GetLogger())
			logger.LogTransition("a", "b", "link:#b", 1)
			require.NoError(t, logger.Close())
		})
	}
}

// TestExplorerFormatter tests prefixes, sorted fields and id shortening
func TestExplorerFormatter(t *testing.T) {
	formatter := &logging.ExplorerFormatter{Timestamp: false, Colors: false}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Message: "State discovered",
		Data: logrus.Fields{
			"state_id": "0123456789abcdef",
			"depth":    2,
			"elapsed":  1500 * time.Millisecond,
		},
	}

	out, err := formatter.Format(entry)
	require.NoError(t, err)
	line := string(out)

	assert.True(t, strings.HasPrefix(line, "INFO [STATE] State discovered"))
	assert.Contains(t, line, "state_id=01234567\n")
	assert.Less(t, strings.Index(line, "depth="), strings.Index(line, "elapsed="))
	assert.Contains(t, line, "elapsed=1.5s")
	assert.True(t, strings.HasSuffix(line, "\n"))
}
