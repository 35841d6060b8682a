/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporting.go
Description: Console reporting for exploration sessions. Routes engine events to the
explorer logger and prints the final statistics.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-explorer/pkg/core"
	"github.com/kleascm/akaylee-explorer/pkg/logging"
	"github.com/sirupsen/logrus"
)

// consoleReporter logs engine events through the explorer logger helpers
type consoleReporter struct {
	logger   *logging.Logger
	fallback *core.LoggerReporter // Completion and error events
}

func newConsoleReporter(logger *logging.Logger) *consoleReporter {
	return &consoleReporter{
		logger:   logger,
		fallback: core.NewLoggerReporter(logger.GetLogger()),
	}
}

func (r *consoleReporter) OnEvent(event core.Event) {
	switch e := event.(type) {
	case core.StateDiscoveredEvent:
		fields := logrus.Fields{"explorer": e.Explorer}
		if e.State.Observation != nil {
			fields["location"] = e.State.Observation.Location
		}
		if e.State.IsError {
			fields["error_state"] = true
		}
		r.logger.LogStateDiscovered(e.State.ID, e.IsNew, e.Depth, fields)
	case core.TransitionFoundEvent:
		t := e.Transition
		r.logger.LogTransition(t.FromStateID, t.ToStateID, string(t.ActionKind)+":"+t.TargetRef, t.Count)
	case core.InteractionCompletedEvent:
		r.logger.LogInteraction(e.Interaction.FromStateID, e.Interaction.Action.Identity(), e.Interaction.Duration, nil)
	case core.InteractionFailedEvent:
		r.logger.LogInteraction(e.Interaction.FromStateID, e.Interaction.Action.Identity(), e.Interaction.Duration, e.Err)
	case core.ExplorationProgressEvent:
		r.logger.GetLogger().WithFields(logrus.Fields{
			"explorer":   e.Explorer,
			"depth":      e.Depth,
			"frontier":   e.FrontierSize,
			"discovered": e.Discovered,
		}).Info("Explorer progress")
	case core.ExplorationCompletedEvent:
		r.logger.LogStats(e.Metrics.StatesDiscovered, e.Metrics.TransitionsFound, e.Metrics.ActionsPerformed, e.Metrics.FailedActions, e.Coverage)
		r.fallback.OnEvent(event)
	default:
		r.fallback.OnEvent(event)
	}
}

// printFinalStats prints the session summary
func printFinalStats(result *core.DiscoveryResult) {
	stats := result.Statistics
	metrics := result.Metrics

	fmt.Println("\n📊 Exploration Summary")
	fmt.Println("=====================")
	fmt.Printf("Session: %s\n", result.SessionID)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Runtime: %v\n", metrics.Elapsed)
	fmt.Printf("States: %d (%d terminal, %d error, %d unreachable)\n",
		stats.TotalStates, stats.TerminalStates, stats.ErrorStates, stats.UnreachableStates)
	fmt.Printf("Transitions: %d\n", stats.TotalTransitions)
	fmt.Printf("Max Depth: %d\n", stats.MaxDepth)
	fmt.Printf("Branching Factor: %.2f\n", stats.AverageBranchingFactor)
	fmt.Printf("Cycles: %d\n", stats.CycleCount)
	fmt.Printf("Actions: %d (%d failed, %d cancelled)\n", metrics.ActionsPerformed, metrics.FailedActions, metrics.CancelledActions)
	fmt.Printf("Coverage: %.1f%%\n", result.Coverage*100)
	fmt.Printf("State Hit Rate: %.1f%%\n", result.HitRate*100)
	if seconds := metrics.Elapsed.Seconds(); seconds > 0 {
		fmt.Printf("Average Rate: %.1f actions/sec\n", float64(metrics.ActionsPerformed)/seconds)
	}
	if result.Err != nil {
		fmt.Printf("Error: %v\n", result.Err)
	}
}
