/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: explorer.go
Description: A single exploration loop. Each explorer owns one live context, a private
frontier and a strategist, and shares the engine's graph store with its siblings.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/strategies"
	"github.com/sirupsen/logrus"
)

// explorer runs the select/act/observe loop against one live context
type explorer struct {
	id         int
	engine     *Engine
	live       interfaces.LiveContext
	frontier   *strategies.Frontier
	strategist *strategies.Strategist
	logger     *logrus.Entry

	current   *interfaces.Observation // Last observation of the live context, nil when unknown
	processed map[string]bool         // States already expanded by this explorer
	actions   int64                   // Actions executed by this explorer
}

// seed pushes the initial state onto the frontier
func (x *explorer) seed(initial *strategies.FrontierEntry) {
	entry := *initial
	entry.EnqueuedAt = time.Now()
	x.frontier.Push(&entry)
}

// release hands the live context back to the target
func (x *explorer) release() {
	if err := x.engine.target.ReleaseContext(x.live); err != nil {
		x.logger.WithError(err).Warn("Failed to release live context")
	}
}

// run expands frontier entries until the frontier drains or the session stops
func (x *explorer) run(ctx context.Context) error {
	e := x.engine
	x.logger.Debug("Explorer started")

	for !e.shouldStop(ctx) {
		entry, ok := x.strategist.SelectNextFrontier(x.frontier)
		if !ok {
			break
		}
		if entry.Depth > e.config.MaxDepth || x.processed[entry.StateID] {
			continue
		}
		x.processed[entry.StateID] = true

		if err := x.expand(ctx, entry); err != nil {
			return err
		}
	}

	x.logger.WithFields(logrus.Fields(x.frontier.GetStats())).WithFields(logrus.Fields{
		"actions":  x.actions,
		"attempts": x.strategist.AttemptCount(),
	}).Debug("Explorer finished")
	return nil
}

// expand tries the untried actions of one state. Only store integrity problems
// are returned; everything else is reported and skipped.
func (x *explorer) expand(ctx context.Context, entry *strategies.FrontierEntry) error {
	e := x.engine
	store := e.Store()

	if err := x.reach(ctx, entry); err != nil {
		e.emit(ErrorEvent{Err: err, Context: fmt.Sprintf("restore state %s", entry.StateID)})
		return nil
	}

	actions, err := x.enumerate(ctx)
	if err != nil {
		e.emit(ErrorEvent{Err: err, Context: fmt.Sprintf("enumerate actions of state %s", entry.StateID)})
		return nil
	}
	if err := store.RecordActionSpace(entry.StateID, actions); err != nil {
		return fmt.Errorf("failed to record action space: %w", err)
	}

	exhausted := false
	tried := 0
	for {
		if e.shouldStop(ctx) {
			break
		}
		if e.config.MaxActionsPerState > 0 && tried >= e.config.MaxActionsPerState {
			break
		}

		action, ok := x.strategist.SelectNextAction(entry, actions)
		if !ok {
			exhausted = true
			break
		}
		tried++

		// Return to the entry state before each action
		if err := x.reach(ctx, entry); err != nil {
			e.emit(ErrorEvent{Err: err, Context: fmt.Sprintf("restore state %s", entry.StateID)})
			break
		}

		if err := x.act(ctx, entry, action); err != nil {
			return err
		}
	}

	if exhausted {
		terminal, err := store.MarkTerminal(entry.StateID)
		if err != nil {
			return fmt.Errorf("failed to mark terminal state: %w", err)
		}
		if terminal {
			x.logger.WithField("state_id", entry.StateID).Debug("State is terminal")
		}
	}
	return nil
}

// act executes one action and folds its outcome into the graph
func (x *explorer) act(ctx context.Context, entry *strategies.FrontierEntry, action interfaces.ActionDescriptor) error {
	e := x.engine
	store := e.Store()
	session := e.Session()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	interaction := &Interaction{
		ID:          uuid.New().String(),
		Explorer:    x.id,
		FromStateID: entry.StateID,
		Action:      action,
		Timestamp:   time.Now(),
	}

	start := time.Now()
	outcome, err := x.execute(ctx, action)
	interaction.Duration = time.Since(start)
	if outcome.Duration > 0 {
		interaction.Duration = outcome.Duration
	}
	if err == nil && !outcome.Success {
		err = outcome.Err
		if err == nil {
			err = fmt.Errorf("action %s reported failure", action.Identity())
		}
	}

	session.Metrics.ActionsPerformed.Add(1)
	x.actions++

	// The live context may have moved even if the action failed
	x.current = nil

	// The session ended while the action ran, the target is not to blame
	if err != nil && ctx.Err() != nil {
		session.Metrics.CancelledActions.Add(1)
		interaction.Cancelled = true
		interaction.Error = err.Error()
		e.recordInteraction(interaction)
		e.emit(InteractionCancelledEvent{Interaction: interaction, Err: err})
		return nil
	}

	if merr := store.MarkExplored(entry.StateID, action); merr != nil {
		return fmt.Errorf("failed to mark action explored: %w", merr)
	}

	if err != nil {
		session.Metrics.FailedActions.Add(1)
		interaction.Error = err.Error()
		e.recordInteraction(interaction)
		e.emit(InteractionFailedEvent{Interaction: interaction, Err: err})
		x.progress(entry)
		return nil
	}
	interaction.Success = true

	if err := x.wait(ctx); err != nil {
		x.logger.WithError(err).Debug("Quiescence not reached, capturing anyway")
	}

	obs, err := x.capture(ctx)
	if err != nil {
		e.emit(ErrorEvent{Err: err, Context: fmt.Sprintf("capture after %s", action.Identity())})
		e.recordInteraction(interaction)
		e.emit(InteractionCompletedEvent{Interaction: interaction})
		return nil
	}
	x.current = obs

	toID, isNew, err := x.resolve(entry, obs)
	if errors.Is(err, graph.ErrMaxStatesExceeded) {
		e.budgetHit.Store(true)
		x.logger.WithField("max_states", e.config.MaxStates).Info("State budget exhausted")
		e.recordInteraction(interaction)
		e.emit(InteractionCompletedEvent{Interaction: interaction})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve observed state: %w", err)
	}
	interaction.ToStateID = toID

	if toID != entry.StateID || e.config.RecordSelfLoops {
		if err := x.record(entry, action, toID, isNew, obs); err != nil {
			return err
		}
	}

	e.recordInteraction(interaction)
	e.emit(InteractionCompletedEvent{Interaction: interaction})
	x.progress(entry)
	return nil
}

// resolve maps an observation to a state id, inserting a new state if needed
func (x *explorer) resolve(entry *strategies.FrontierEntry, obs *interfaces.Observation) (string, bool, error) {
	e := x.engine
	store := e.Store()

	if e.comparator.Compare(entry.Observation, obs).Identical {
		if err := store.Touch(entry.StateID); err != nil {
			return "", false, fmt.Errorf("failed to touch state: %w", err)
		}
		return entry.StateID, false, nil
	}

	if e.config.SimilarityMerge {
		if _, exact := store.Lookup(obs); !exact {
			if id, ok := store.FindSimilarState(obs, e.similarEnough); ok {
				if err := store.Touch(id); err != nil {
					return "", false, fmt.Errorf("failed to touch state: %w", err)
				}
				return id, false, nil
			}
		}
	}

	return store.InsertOrFind(obs)
}

// record stores the transition and reports the reached state
func (x *explorer) record(entry *strategies.FrontierEntry, action interfaces.ActionDescriptor, toID string, isNew bool, obs *interfaces.Observation) error {
	e := x.engine
	store := e.Store()
	session := e.Session()

	if isNew {
		session.Metrics.StatesDiscovered.Add(1)
		if len(obs.ErrorSignals) > 0 {
			if err := store.MarkError(toID, true); err != nil {
				return fmt.Errorf("failed to mark error state: %w", err)
			}
		}
		x.frontier.Push(&strategies.FrontierEntry{
			StateID:     toID,
			Depth:       entry.Depth + 1,
			Observation: obs,
			IsError:     len(obs.ErrorSignals) > 0,
			EnqueuedAt:  time.Now(),
		})
	}

	if toID != entry.StateID {
		state, err := store.State(toID)
		if err != nil {
			return fmt.Errorf("failed to load reached state: %w", err)
		}
		e.emit(StateDiscoveredEvent{State: state, IsNew: isNew, Depth: entry.Depth + 1, Explorer: x.id})
	}

	transition, newEdge, err := store.RecordTransition(entry.StateID, toID, action.Kind, action.TargetRef)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	if newEdge {
		session.Metrics.TransitionsFound.Add(1)
	}
	e.emit(TransitionFoundEvent{Transition: transition, IsNew: newEdge})
	return nil
}

// reach makes the live context show the entry's state, restoring if needed
func (x *explorer) reach(ctx context.Context, entry *strategies.FrontierEntry) error {
	if x.current != nil && x.current.Fingerprint() == entry.Observation.Fingerprint() {
		return nil
	}

	err := x.restore(ctx, entry.Observation)
	if err == nil {
		var obs *interfaces.Observation
		obs, err = x.capture(ctx)
		if err == nil {
			if x.matches(entry.Observation, obs) {
				x.current = obs
				return nil
			}
			err = fmt.Errorf("restored context does not match state %s", entry.StateID)
		}
	}

	if x.engine.config.EnablePathReplay {
		rerr := x.replay(ctx, entry)
		if rerr == nil {
			return nil
		}
		err = fmt.Errorf("%v; path replay failed: %w", err, rerr)
	}

	x.current = nil
	return err
}

// replay restores the initial state and re-executes the recorded shortest path
func (x *explorer) replay(ctx context.Context, entry *strategies.FrontierEntry) error {
	store := x.engine.Store()

	initialID := store.InitialStateID()
	initial, err := store.State(initialID)
	if err != nil {
		return err
	}
	steps, err := store.PathActions(initialID, entry.StateID)
	if err != nil {
		return err
	}

	if err := x.restore(ctx, initial.Observation); err != nil {
		return fmt.Errorf("failed to restore initial state: %w", err)
	}

	for _, step := range steps {
		from, err := store.State(step.FromStateID)
		if err != nil {
			return err
		}
		action := actionFor(from.Observation, step.ActionKind, step.TargetRef)
		outcome, err := x.execute(ctx, action)
		if err != nil {
			return fmt.Errorf("failed to replay %s: %w", action.Identity(), err)
		}
		if !outcome.Success {
			return fmt.Errorf("replayed action %s reported failure", action.Identity())
		}
		_ = x.wait(ctx)
	}

	obs, err := x.capture(ctx)
	if err != nil {
		return err
	}
	if !x.matches(entry.Observation, obs) {
		return fmt.Errorf("replayed path did not reach state %s", entry.StateID)
	}
	x.current = obs
	x.logger.WithFields(logrus.Fields{
		"state_id": entry.StateID,
		"steps":    len(steps),
	}).Debug("Reached state by path replay")
	return nil
}

// actionFor finds the full descriptor for a recorded transition
func actionFor(obs *interfaces.Observation, kind interfaces.ActionKind, targetRef string) interfaces.ActionDescriptor {
	if obs != nil {
		for _, a := range obs.Actions {
			if a.Kind == kind && a.TargetRef == targetRef {
				return a
			}
		}
	}
	return interfaces.ActionDescriptor{TargetRef: targetRef, Kind: kind, Visible: true, Enabled: true}
}

func (x *explorer) matches(expected, obs *interfaces.Observation) bool {
	if expected.Fingerprint() == obs.Fingerprint() {
		return true
	}
	return x.engine.comparator.Compare(expected, obs).Identical
}

func (x *explorer) progress(entry *strategies.FrontierEntry) {
	e := x.engine
	interval := int64(e.config.ProgressInterval)
	if interval <= 0 || x.actions%interval != 0 {
		return
	}
	e.emit(ExplorationProgressEvent{
		Discovered:   e.Session().Metrics.StatesDiscovered.Load(),
		Depth:        entry.Depth,
		FrontierSize: x.frontier.Size(),
		Explorer:     x.id,
	})
}

// Target calls, each bounded by its own timeout

func (x *explorer) capture(ctx context.Context) (*interfaces.Observation, error) {
	cctx, cancel := context.WithTimeout(ctx, x.engine.config.CaptureTimeout)
	defer cancel()

	obs, err := x.engine.target.Capture(cctx, x.live)
	if err != nil {
		return nil, fmt.Errorf("failed to capture observation: %w", err)
	}
	if obs == nil {
		return nil, fmt.Errorf("target returned no observation")
	}
	return obs, nil
}

func (x *explorer) enumerate(ctx context.Context) ([]interfaces.ActionDescriptor, error) {
	cctx, cancel := context.WithTimeout(ctx, x.engine.config.CaptureTimeout)
	defer cancel()

	actions, err := x.engine.target.Enumerate(cctx, x.live)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate actions: %w", err)
	}
	return actions, nil
}

func (x *explorer) execute(ctx context.Context, action interfaces.ActionDescriptor) (interfaces.ActionOutcome, error) {
	cctx, cancel := context.WithTimeout(ctx, x.engine.config.TimeoutPerInteraction)
	defer cancel()

	payload := ""
	if action.Kind == interfaces.ActionInput || action.Kind == interfaces.ActionSelect {
		payload = x.engine.config.InputPayload
	}
	return x.engine.target.Execute(cctx, x.live, action, payload)
}

func (x *explorer) wait(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, x.engine.config.QuiescenceTimeout)
	defer cancel()
	return x.engine.target.Wait(cctx, x.live, x.engine.config.QuiescenceTimeout)
}

func (x *explorer) restore(ctx context.Context, target *interfaces.Observation) error {
	cctx, cancel := context.WithTimeout(ctx, x.engine.config.RestoreTimeout)
	defer cancel()

	if err := x.engine.target.Restore(cctx, x.live, target); err != nil {
		return fmt.Errorf("failed to restore context: %w", err)
	}
	return nil
}
