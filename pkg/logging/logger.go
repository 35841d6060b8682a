/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for the Akaylee Explorer. Structured logrus output to the
console and to size-rotated log files, with JSON, text and custom formats plus helpers
for exploration events.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level      LogLevel  `json:"level" mapstructure:"level"`
	Format     LogFormat `json:"format" mapstructure:"format"`
	OutputDir  string    `json:"output_dir" mapstructure:"output_dir"` // Empty disables file output
	MaxFiles   int       `json:"max_files" mapstructure:"max_files"`   // Rotated backups kept
	MaxSizeMB  int       `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int       `json:"max_age_days" mapstructure:"max_age_days"`
	Timestamp  bool      `json:"timestamp" mapstructure:"timestamp"`
	Caller     bool      `json:"caller" mapstructure:"caller"`
	Colors     bool      `json:"colors" mapstructure:"colors"`
	Compress   bool      `json:"compress" mapstructure:"compress"`
	Quiet      bool      `json:"quiet" mapstructure:"quiet"` // Suppress console output
}

// DefaultLoggerConfig returns console-only info logging with the custom formatter
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatCustom,
		MaxFiles:   10,
		MaxSizeMB:  100,
		MaxAgeDays: 28,
		Timestamp:  true,
		Colors:     true,
	}
}

// Validate checks the LoggerConfig for invalid values
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" {
		if c.MaxFiles <= 0 {
			return fmt.Errorf("max_files must be positive")
		}
		if c.MaxSizeMB <= 0 {
			return fmt.Errorf("max_size_mb must be positive")
		}
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger wraps a logrus logger with rotation and exploration helpers
type Logger struct {
	config    *LoggerConfig
	logger    *logrus.Logger
	rotator   *lumberjack.Logger
	logFile   string
	startTime time.Time
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}
	return l.setupOutput()
}

func (l *Logger) setFormatter() error {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatCustom:
		l.logger.SetFormatter(&ExplorerFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}
	return nil
}

// setupOutput writes to the console and, when configured, a rotated log file
func (l *Logger) setupOutput() error {
	var writers []io.Writer
	if !l.config.Quiet {
		writers = append(writers, os.Stdout)
	}

	if l.config.OutputDir != "" {
		if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		l.logFile = filepath.Join(l.config.OutputDir, fmt.Sprintf("akaylee-explorer_%s.log", l.startTime.Format("2006-01-02_15-04-05")))
		l.rotator = &lumberjack.Logger{
			Filename:   l.logFile,
			MaxSize:    l.config.MaxSizeMB,
			MaxBackups: l.config.MaxFiles,
			MaxAge:     l.config.MaxAgeDays,
			Compress:   l.config.Compress,
		}
		writers = append(writers, l.rotator)
	}

	switch len(writers) {
	case 0:
		l.logger.SetOutput(io.Discard)
	case 1:
		l.logger.SetOutput(writers[0])
	default:
		l.logger.SetOutput(io.MultiWriter(writers...))
	}

	if l.logFile != "" {
		l.logger.WithFields(logrus.Fields{
			"start_time": l.startTime.Format(time.RFC3339),
			"log_file":   l.logFile,
			"level":      l.config.Level,
			"format":     l.config.Format,
		}).Info("Akaylee Explorer logging system initialized")
	}
	return nil
}

// LogFile returns the active log file path, empty when file output is disabled
func (l *Logger) LogFile() string {
	return l.logFile
}

// Exploration-specific logging methods

// LogStateDiscovered logs a state sighting
func (l *Logger) LogStateDiscovered(stateID string, isNew bool, depth int, fields logrus.Fields) {
	entry := l.logger.WithFields(fields).WithFields(logrus.Fields{
		"state_id": stateID,
		"is_new":   isNew,
		"depth":    depth,
	})
	if isNew {
		entry.Info("State discovered")
		return
	}
	entry.Debug("State revisited")
}

// LogTransition logs a recorded edge
func (l *Logger) LogTransition(from, to, action string, count int) {
	l.logger.WithFields(logrus.Fields{
		"from":   from,
		"to":     to,
		"action": action,
		"count":  count,
	}).Debug("Transition recorded")
}

// LogInteraction logs an executed action
func (l *Logger) LogInteraction(stateID, action string, duration time.Duration, err error) {
	entry := l.logger.WithFields(logrus.Fields{
		"state_id": stateID,
		"action":   action,
		"duration": duration,
	})
	if err != nil {
		entry.WithError(err).Warn("Interaction failed")
		return
	}
	entry.Debug("Interaction completed")
}

// LogStats logs periodic exploration statistics
func (l *Logger) LogStats(states, transitions, actions, failed int64, coverage float64) {
	l.logger.WithFields(logrus.Fields{
		"states":      states,
		"transitions": transitions,
		"actions":     actions,
		"failed":      failed,
		"coverage":    fmt.Sprintf("%.1f%%", coverage*100),
		"uptime":      time.Since(l.startTime),
	}).Info("Statistics update")
}

// Close flushes and closes the rotated log file
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	if err := l.rotator.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}
