/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Exploration configuration. Defaults, struct-tag validation and the knobs
recognised by the engine (strategy, budgets, per-operation timeouts, concurrency).
*/

package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kleascm/akaylee-explorer/pkg/strategies"
)

// ExplorerConfig contains all configuration parameters for an exploration session
type ExplorerConfig struct {
	// Policy and budgets
	Strategy           strategies.StrategyName `json:"strategy" mapstructure:"strategy" validate:"required,strategy"`
	MaxDepth           int                     `json:"max_depth" mapstructure:"max_depth" validate:"gte=0"`
	MaxStates          int                     `json:"max_states" mapstructure:"max_states" validate:"gte=1"`
	MaxActionsPerState int                     `json:"max_actions_per_state" mapstructure:"max_actions_per_state" validate:"gte=0"` // 0 = unlimited
	MaxActions         int                     `json:"max_actions" mapstructure:"max_actions" validate:"gte=0"`                     // Session-wide, 0 = unlimited
	MaxDuration        time.Duration           `json:"max_duration" mapstructure:"max_duration" validate:"gte=0"`                   // Wall clock, 0 = unlimited

	// Per-operation timeouts
	TimeoutPerInteraction time.Duration `json:"timeout_per_interaction" mapstructure:"timeout_per_interaction" validate:"gt=0"`
	QuiescenceTimeout     time.Duration `json:"quiescence_timeout" mapstructure:"quiescence_timeout" validate:"gt=0"`
	RestoreTimeout        time.Duration `json:"restore_timeout" mapstructure:"restore_timeout" validate:"gt=0"`
	CaptureTimeout        time.Duration `json:"capture_timeout" mapstructure:"capture_timeout" validate:"gt=0"`

	// Concurrency
	ParallelExplorers int     `json:"parallel_explorers" mapstructure:"parallel_explorers" validate:"gte=1,lte=64"`
	ActionsPerSecond  float64 `json:"actions_per_second" mapstructure:"actions_per_second" validate:"gte=0"` // Pacing when simulating users

	// Observation
	EnableVisualDiff     bool `json:"enable_visual_diff" mapstructure:"enable_visual_diff"`
	CaptureScreenshots   bool `json:"capture_screenshots" mapstructure:"capture_screenshots"`
	DetectHiddenElements bool `json:"detect_hidden_elements" mapstructure:"detect_hidden_elements"`
	SimulateUserBehavior bool `json:"simulate_user_behavior" mapstructure:"simulate_user_behavior"`

	// Graph building
	RecordSelfLoops  bool `json:"record_self_loops" mapstructure:"record_self_loops"`
	SimilarityMerge  bool `json:"similarity_merge" mapstructure:"similarity_merge"`
	EnablePathReplay bool `json:"enable_path_replay" mapstructure:"enable_path_replay"`

	// Misc
	InputPayload     string `json:"input_payload" mapstructure:"input_payload"`
	Seed             int64  `json:"seed" mapstructure:"seed"`
	ProgressInterval int    `json:"progress_interval" mapstructure:"progress_interval" validate:"gte=0"` // Actions between progress events
	GraphFormat      string `json:"graph_format" mapstructure:"graph_format" validate:"oneof=json json-pretty msgpack"`
	GraphCompression string `json:"graph_compression" mapstructure:"graph_compression" validate:"oneof=none gzip zstd"`
}

// DefaultExplorerConfig returns a breadth-first single-explorer configuration
func DefaultExplorerConfig() *ExplorerConfig {
	return &ExplorerConfig{
		Strategy:              strategies.BreadthFirst,
		MaxDepth:              10,
		MaxStates:             100,
		TimeoutPerInteraction: 10 * time.Second,
		QuiescenceTimeout:     2 * time.Second,
		RestoreTimeout:        15 * time.Second,
		CaptureTimeout:        10 * time.Second,
		ParallelExplorers:     1,
		ActionsPerSecond:      2,
		EnableVisualDiff:      true,
		CaptureScreenshots:    true,
		InputPayload:          "akaylee",
		ProgressInterval:      10,
		GraphFormat:           "json",
		GraphCompression:      "none",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := strategies.ParseStrategy(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration and reports every offending field
func (c *ExplorerConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid explorer config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid explorer config: %s", strings.Join(msgs, "; "))
}
