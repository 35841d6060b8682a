/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility commands for the explorer. Lists strategies and performs the
self-check used before long runs.
*/

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kleascm/akaylee-explorer/pkg/strategies"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var strategyDescriptions = map[strategies.StrategyName]string{
	strategies.BreadthFirst:  "Explores states level by level, oldest frontier entry first",
	strategies.DepthFirst:    "Follows one path as deep as it goes before backtracking",
	strategies.PriorityBased: "Scores states by action count, depth and form content, then takes the best action",
	strategies.RandomWalk:    "Picks states and actions at random, reproducible with --seed",
	strategies.Guided:        "Prefers states with the most untried actions and fills forms before navigating",
	strategies.Hybrid:        "Starts breadth-first, turns priority-based, then random as attempts grow",
}

// ListStrategies prints every exploration strategy
func ListStrategies(cmd *cobra.Command, args []string) {
	fmt.Println("🧭 Akaylee Explorer - Exploration Strategies")
	fmt.Println("===========================================")
	fmt.Println()

	for i, name := range strategies.AllStrategies {
		fmt.Printf("%d. %s\n", i+1, name)
		fmt.Printf("   %s\n", strategyDescriptions[name])
		fmt.Println()
	}

	fmt.Println("✨ Use --strategy to pick one")
}

// chromeCandidates are the binary names chromedp looks for
var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome", "headless-shell"}

// PerformSelfCheck validates configuration and prerequisites
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Akaylee Explorer - Self Check")
	fmt.Println("===============================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg, err := ExplorerConfigFromViper()
	if err != nil {
		return fmt.Errorf("configuration check failed: %w", err)
	}
	fmt.Printf("✅ Configuration: strategy=%s max_states=%d max_depth=%d explorers=%d\n",
		cfg.Strategy, cfg.MaxStates, cfg.MaxDepth, cfg.ParallelExplorers)

	if _, err := SetupLogging(); err != nil {
		return fmt.Errorf("logging check failed: %w", err)
	}
	fmt.Println("✅ Logging configuration")

	if dir := viper.GetString("output_dir"); dir != "" {
		if err := checkWritable(dir); err != nil {
			return fmt.Errorf("output directory check failed: %w", err)
		}
		fmt.Printf("✅ Output directory: %s\n", dir)
	}

	if chrome := findChrome(); chrome != "" {
		fmt.Printf("✅ Chrome: %s\n", chrome)
	} else {
		fmt.Println("⚠️  Chrome not found on PATH, only the demo command will work")
	}

	fmt.Println("\n✨ Self check completed successfully!")
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".akaylee-check")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func findChrome() string {
	if path := viper.GetString("web.exec_path"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
