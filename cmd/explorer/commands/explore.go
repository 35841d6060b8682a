/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: explore.go
Description: Explore command. Starts a Chrome-backed target for the configured URL and
runs an exploration session against it.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/kleascm/akaylee-explorer/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunExplore explores a live web application
func RunExplore(cmd *cobra.Command, args []string) error {
	fmt.Println("🧭 Akaylee Explorer - Starting Exploration Session")
	fmt.Println("=================================================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := ExplorerConfigFromViper()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	opts, err := browserOptionsFromViper(cfg)
	if err != nil {
		return fmt.Errorf("invalid browser options: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := web.NewBrowserTarget(ctx, opts, logger.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer target.Close()

	result, err := runSession(ctx, target, target, cfg, logger)
	if err != nil {
		return fmt.Errorf("exploration failed: %w", err)
	}

	fmt.Printf("\n✨ Exploration %s! Results in %s\n", result.Status, viper.GetString("output_dir"))
	return nil
}

// browserOptionsFromViper builds browser options, taking observation switches from cfg
func browserOptionsFromViper(cfg *core.ExplorerConfig) (web.Options, error) {
	opts := web.DefaultOptions(viper.GetString("web.start_url"))
	opts.Scope = viper.GetStringSlice("web.scope")
	opts.Headless = viper.GetBool("web.headless")
	opts.ExecPath = viper.GetString("web.exec_path")
	if w := viper.GetInt("web.viewport_width"); w > 0 {
		opts.ViewportWidth = w
	}
	if h := viper.GetInt("web.viewport_height"); h > 0 {
		opts.ViewportHeight = h
	}
	if poll := viper.GetDuration("web.poll_interval"); poll > 0 {
		opts.PollInterval = poll
	}
	opts.CaptureScreenshots = cfg.CaptureScreenshots
	opts.DetectHiddenElements = cfg.DetectHiddenElements

	headers, err := parsePairs(viper.GetStringSlice("web.headers"), ":")
	if err != nil {
		return opts, fmt.Errorf("bad header: %w", err)
	}
	cookies, err := parsePairs(viper.GetStringSlice("web.cookies"), "=")
	if err != nil {
		return opts, fmt.Errorf("bad cookie: %w", err)
	}
	opts.Headers = headers
	opts.Cookies = cookies

	return opts, opts.Validate()
}
