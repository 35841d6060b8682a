/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: demo.go
Description: Demo command. Explores one of the built-in sandbox applications, no browser
required.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/kleascm/akaylee-explorer/pkg/sandbox"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SandboxApps lists the applications the demo command can explore
var SandboxApps = []string{"site", "login", "tree", "chain", "cycle"}

// NewSandboxApp builds a sandbox application by name. size is the tree depth or the
// chain length.
func NewSandboxApp(name string, size int) (*sandbox.App, error) {
	if size <= 0 {
		size = 3
	}
	switch name {
	case "site":
		return sandbox.NewDemoApp(), nil
	case "login":
		return sandbox.NewLoginApp(), nil
	case "tree":
		return sandbox.NewTreeApp(2, size), nil
	case "chain":
		return sandbox.NewChainApp(size), nil
	case "cycle":
		return sandbox.NewCycleApp(), nil
	default:
		return nil, fmt.Errorf("unknown sandbox app %q (available: %v)", name, SandboxApps)
	}
}

// RunDemo explores a sandbox application
func RunDemo(cmd *cobra.Command, args []string) error {
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

	name := viper.GetString("demo.app")
	app, err := NewSandboxApp(name, viper.GetInt("demo.size"))
	if err != nil {
		return err
	}

	fmt.Printf("🧪 Exploring sandbox app %q with %s\n", name, cfg.Strategy)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := runSession(ctx, app, app, cfg, logger)
	if err != nil {
		return fmt.Errorf("exploration failed: %w", err)
	}

	fmt.Printf("\n✨ Exploration %s! Executed %d actions against the sandbox\n", result.Status, app.Executions())
	return nil
}
