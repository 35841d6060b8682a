/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for Akaylee Explorer. Wires flags, configuration files
and environment variables into the exploration engine and exposes the explore, demo,
strategies and check commands.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/akaylee-explorer/cmd/explorer/commands"
	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bind maps a flag onto a viper key
func bind(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}

func bindLocal(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}

func main() {
	defaults := core.DefaultExplorerConfig()

	rootCmd := &cobra.Command{
		Use:   "akaylee-explorer",
		Short: "Akaylee Explorer - automated state-space discovery for interactive applications",
		Long: `Akaylee Explorer drives an interactive application through its actions, fingerprints
every screen it reaches and builds a state graph of the application: which states exist,
which actions lead between them and which of them are dead ends or error screens.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()

	// Configuration and logging
	flags.String("config", "", "Configuration file path")
	flags.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flags.String("log-format", "custom", "Log format (text, json, custom)")
	flags.String("log-dir", "", "Log output directory, empty for console only")
	flags.Int("log-max-files", 10, "Maximum number of rotated log files to keep")
	flags.Int("log-max-size", 100, "Maximum log file size in megabytes")
	flags.Bool("log-compress", false, "Compress rotated log files")
	flags.Bool("quiet", false, "Suppress console logging")

	// Exploration policy and budgets
	flags.String("strategy", string(defaults.Strategy), "Exploration strategy (breadth-first, depth-first, priority-based, random-walk, guided, hybrid)")
	flags.Int("max-depth", defaults.MaxDepth, "Maximum depth from the initial state")
	flags.Int("max-states", defaults.MaxStates, "Maximum number of distinct states")
	flags.Int("max-actions-per-state", defaults.MaxActionsPerState, "Maximum actions attempted per state (0 = unlimited)")
	flags.Int("max-actions", defaults.MaxActions, "Maximum actions per session (0 = unlimited)")
	flags.Duration("max-duration", defaults.MaxDuration, "Wall-clock limit for the session (0 = unlimited)")

	// Timeouts
	flags.Duration("timeout", defaults.TimeoutPerInteraction, "Timeout per interaction")
	flags.Duration("quiescence-timeout", defaults.QuiescenceTimeout, "How long to wait for the target to settle")
	flags.Duration("restore-timeout", defaults.RestoreTimeout, "Timeout for restoring a state")
	flags.Duration("capture-timeout", defaults.CaptureTimeout, "Timeout for capturing an observation")

	// Concurrency and behaviour
	flags.Int("parallel", defaults.ParallelExplorers, "Number of parallel explorers")
	flags.Float64("actions-per-second", defaults.ActionsPerSecond, "Action pacing when simulating user behaviour")
	flags.Bool("simulate-user", defaults.SimulateUserBehavior, "Pace actions like a human user")
	flags.Bool("visual-diff", defaults.EnableVisualDiff, "Compare screenshots when judging similarity")
	flags.Bool("screenshots", defaults.CaptureScreenshots, "Capture screenshots with every observation")
	flags.Bool("hidden", defaults.DetectHiddenElements, "Offer hidden and disabled elements as actions")
	flags.Bool("self-loops", defaults.RecordSelfLoops, "Record actions that leave the state unchanged")
	flags.Bool("similarity-merge", defaults.SimilarityMerge, "Merge near-identical states")
	flags.Bool("path-replay", defaults.EnablePathReplay, "Replay recorded paths when restoring a state fails")
	flags.String("payload", defaults.InputPayload, "Text typed into input fields")
	flags.Int64("seed", defaults.Seed, "Seed for randomised strategies (0 = time based)")
	flags.Int("progress-interval", defaults.ProgressInterval, "Actions between progress reports")

	// Output
	flags.String("output", "./explore_output", "Directory for graph and summary output")
	flags.String("graph-format", defaults.GraphFormat, "Graph encoding (json, json-pretty, msgpack)")
	flags.String("graph-compression", defaults.GraphCompression, "Graph compression (none, gzip, zstd)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	bind("config", rootCmd, "config")
	bind("log_level", rootCmd, "log-level")
	bind("log_format", rootCmd, "log-format")
	bind("log_dir", rootCmd, "log-dir")
	bind("log_max_files", rootCmd, "log-max-files")
	bind("log_max_size", rootCmd, "log-max-size")
	bind("log_compress", rootCmd, "log-compress")
	bind("quiet", rootCmd, "quiet")
	bind("explorer.strategy", rootCmd, "strategy")
	bind("explorer.max_depth", rootCmd, "max-depth")
	bind("explorer.max_states", rootCmd, "max-states")
	bind("explorer.max_actions_per_state", rootCmd, "max-actions-per-state")
	bind("explorer.max_actions", rootCmd, "max-actions")
	bind("explorer.max_duration", rootCmd, "max-duration")
	bind("explorer.timeout_per_interaction", rootCmd, "timeout")
	bind("explorer.quiescence_timeout", rootCmd, "quiescence-timeout")
	bind("explorer.restore_timeout", rootCmd, "restore-timeout")
	bind("explorer.capture_timeout", rootCmd, "capture-timeout")
	bind("explorer.parallel_explorers", rootCmd, "parallel")
	bind("explorer.actions_per_second", rootCmd, "actions-per-second")
	bind("explorer.simulate_user_behavior", rootCmd, "simulate-user")
	bind("explorer.enable_visual_diff", rootCmd, "visual-diff")
	bind("explorer.capture_screenshots", rootCmd, "screenshots")
	bind("explorer.detect_hidden_elements", rootCmd, "hidden")
	bind("explorer.record_self_loops", rootCmd, "self-loops")
	bind("explorer.similarity_merge", rootCmd, "similarity-merge")
	bind("explorer.enable_path_replay", rootCmd, "path-replay")
	bind("explorer.input_payload", rootCmd, "payload")
	bind("explorer.seed", rootCmd, "seed")
	bind("explorer.progress_interval", rootCmd, "progress-interval")
	bind("explorer.graph_format", rootCmd, "graph-format")
	bind("explorer.graph_compression", rootCmd, "graph-compression")
	bind("output_dir", rootCmd, "output")
	bind("metrics_addr", rootCmd, "metrics-addr")

	// Explore a live web application
	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore a web application in a headless browser",
		Long: `Open the start URL in Chrome, enumerate every interactive element and explore the
application state by state. The resulting graph, interaction log and summary are written
to the output directory.`,
		RunE: commands.RunExplore,
	}
	exploreCmd.Flags().String("url", "", "Start URL (required)")
	exploreCmd.Flags().StringSlice("scope", []string{}, "Allowed URL fragments, links outside are skipped")
	exploreCmd.Flags().Bool("headless", true, "Run the browser headless")
	exploreCmd.Flags().String("chrome", "", "Path to the Chrome binary")
	exploreCmd.Flags().StringSlice("header", []string{}, "Extra request headers (Name: value)")
	exploreCmd.Flags().StringSlice("cookie", []string{}, "Cookies set before the first page load (name=value)")
	exploreCmd.Flags().Int("viewport-width", 1280, "Viewport width")
	exploreCmd.Flags().Int("viewport-height", 720, "Viewport height")
	exploreCmd.Flags().Duration("poll-interval", 150*time.Millisecond, "DOM polling interval while waiting for the page to settle")
	exploreCmd.MarkFlagRequired("url")

	bindLocal("web.start_url", exploreCmd, "url")
	bindLocal("web.scope", exploreCmd, "scope")
	bindLocal("web.headless", exploreCmd, "headless")
	bindLocal("web.exec_path", exploreCmd, "chrome")
	bindLocal("web.headers", exploreCmd, "header")
	bindLocal("web.cookies", exploreCmd, "cookie")
	bindLocal("web.viewport_width", exploreCmd, "viewport-width")
	bindLocal("web.viewport_height", exploreCmd, "viewport-height")
	bindLocal("web.poll_interval", exploreCmd, "poll-interval")
	rootCmd.AddCommand(exploreCmd)

	// Explore a built-in sandbox application
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Explore a built-in sandbox application",
		Long: `Run the explorer against an in-memory application. Useful for trying strategies
and budgets without a browser. Available apps: site, login, tree, chain, cycle.`,
		RunE: commands.RunDemo,
	}
	demoCmd.Flags().String("app", "site", "Sandbox application (site, login, tree, chain, cycle)")
	demoCmd.Flags().Int("size", 3, "Size parameter for tree depth or chain length")
	bindLocal("demo.app", demoCmd, "app")
	bindLocal("demo.size", demoCmd, "size")
	rootCmd.AddCommand(demoCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "strategies",
		Short: "List available exploration strategies",
		Run:   commands.ListStrategies,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate configuration and prerequisites",
		Long: `Validate the effective configuration, make sure the output directory is writable
and look for a Chrome binary. Useful in CI before a long exploration run.`,
		RunE: commands.PerformSelfCheck,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
