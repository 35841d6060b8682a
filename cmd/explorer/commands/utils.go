/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared helpers for the explorer commands. Configuration loading, logging
setup and the session runner used by both the browser and sandbox commands.
*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AKAYLEE_EXPLORER_MAX_DEPTH overrides explorer.max_depth
	viper.SetEnvPrefix("AKAYLEE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging builds the explorer logger from configuration
func SetupLogging() (*logging.Logger, error) {
	config := logging.DefaultLoggerConfig()
	config.Level = logging.LogLevel(viper.GetString("log_level"))
	config.Format = logging.LogFormat(viper.GetString("log_format"))
	config.OutputDir = viper.GetString("log_dir")
	config.MaxFiles = viper.GetInt("log_max_files")
	config.MaxSizeMB = viper.GetInt("log_max_size")
	config.Compress = viper.GetBool("log_compress")
	config.Quiet = viper.GetBool("quiet")

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// ExplorerConfigFromViper overlays configured values on the defaults and validates them
func ExplorerConfigFromViper() (*core.ExplorerConfig, error) {
	settings := struct {
		Explorer *core.ExplorerConfig `mapstructure:"explorer"`
	}{Explorer: core.DefaultExplorerConfig()}

	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode explorer config: %w", err)
	}
	if err := settings.Explorer.Validate(); err != nil {
		return nil, err
	}
	return settings.Explorer, nil
}

// runSession explores target with cfg, writes the outputs and prints the summary.
// The returned error is the session's own error, if any.
func runSession(ctx context.Context, target interfaces.Target, differ interfaces.VisualDiffer, cfg *core.ExplorerConfig, logger *logging.Logger) (*core.DiscoveryResult, error) {
	opts := []core.EngineOption{
		core.WithLogger(logger.GetLogger()),
		core.WithReporter(newConsoleReporter(logger)),
	}
	if differ != nil && cfg.EnableVisualDiff {
		opts = append(opts, core.WithVisualDiffer(differ))
	}

	engine, err := core.NewEngine(target, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	if addr := viper.GetString("metrics_addr"); addr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		engine.AddReporter(core.NewPrometheusReporter(registry))

		server := serveMetrics(addr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	// Interrupts stop the session gracefully and keep what was found
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := engine.Discover(ctx)
	if result == nil {
		return nil, runErr
	}

	if err := writeOutputs(viper.GetString("output_dir"), cfg, result, logger); err != nil {
		return result, err
	}
	printFinalStats(result)
	return result, runErr
}

// serveMetrics exposes registry on addr until the server is shut down
func serveMetrics(addr string, registry *prometheus.Registry, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().WithError(err).Warn("Metrics server stopped")
		}
	}()
	logger.GetLogger().WithField("addr", addr).Info("Serving Prometheus metrics")
	return server
}

// parsePairs splits "key<sep>value" entries into a map
func parsePairs(entries []string, sep string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, sep)
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("malformed entry %q, expected key%svalue", entry, sep)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, nil
}
