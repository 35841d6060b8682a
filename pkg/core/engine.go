/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Exploration engine. Drives one or more explorers against a target, shares
a single state graph store between them, tracks the session lifecycle and emits ordered
events. Discover always returns whatever was found, even when the session fails.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-explorer/pkg/graph"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/serialization"
	"github.com/kleascm/akaylee-explorer/pkg/similarity"
	"github.com/kleascm/akaylee-explorer/pkg/strategies"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Thresholds for merging a non-identical observation into an existing state
const (
	mergeVisualThreshold     = 0.8
	mergeStructuralThreshold = 0.8
)

// Engine explores a target and builds its state graph
type Engine struct {
	config     *ExplorerConfig
	target     interfaces.Target
	logger     *logrus.Logger
	comparator *similarity.Comparator
	serializer *serialization.Serializer
	differ     interfaces.VisualDiffer
	limiter    *rate.Limiter

	// State management
	mu        sync.RWMutex
	running   bool
	session   *Session
	store     *graph.Store
	ledger    *strategies.AttemptLedger // Attempts of the current session, shared by all explorers
	explorers []*explorer
	reporters []Reporter
	channels  []*ChannelReporter

	stopRequested atomic.Bool
	budgetHit     atomic.Bool

	// Event ordering
	emitMu   sync.Mutex
	sequence uint64

	interactionsMu sync.Mutex
	interactions   []*Interaction
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *logrus.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithVisualDiffer plugs a pixel-diff capability into the comparator
func WithVisualDiffer(differ interfaces.VisualDiffer) EngineOption {
	return func(e *Engine) {
		e.differ = differ
	}
}

// WithReporter registers a reporter up front
func WithReporter(r Reporter) EngineOption {
	return func(e *Engine) {
		e.reporters = append(e.reporters, r)
	}
}

// NewEngine creates an engine for target. A nil config uses DefaultExplorerConfig.
func NewEngine(target interfaces.Target, config *ExplorerConfig, opts ...EngineOption) (*Engine, error) {
	if target == nil {
		return nil, fmt.Errorf("target must not be nil")
	}
	if config == nil {
		config = DefaultExplorerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		target: target,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	serializer, err := serialization.NewSerializer(config.GraphFormat, config.GraphCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph serializer: %w", err)
	}
	e.serializer = serializer

	cmpOpts := []similarity.Option{similarity.WithLogger(e.logger)}
	if e.differ != nil {
		cmpOpts = append(cmpOpts, similarity.WithVisualDiffer(e.differ))
	}
	e.comparator = similarity.NewComparator(cmpOpts...)
	e.comparator.SetVisualDiffEnabled(config.EnableVisualDiff)

	if config.SimulateUserBehavior && config.ActionsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.ActionsPerSecond), 1)
	}

	return e, nil
}

// AddReporter registers a Reporter for telemetry and live reporting
func (e *Engine) AddReporter(reporter Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporters = append(e.reporters, reporter)
}

// Events subscribes to the event stream of the next (or current) session. Every
// event is delivered in sequence order and the channel is closed after the
// session's completion event, so the caller must drain it.
func (e *Engine) Events(buffer int) <-chan Event {
	ch := NewChannelReporter(buffer)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporters = append(e.reporters, ch)
	e.channels = append(e.channels, ch)
	return ch.Events()
}

// Config returns the engine configuration
func (e *Engine) Config() *ExplorerConfig {
	return e.config
}

// Session returns the current or last session
func (e *Engine) Session() *Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// Store returns the graph store of the current or last session
func (e *Engine) Store() *graph.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// IsRunning reports whether a session is in progress
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Stop asks the running session to finish at the next safe point. In-flight
// actions complete first.
func (e *Engine) Stop() error {
	if !e.IsRunning() {
		return fmt.Errorf("explorer is not running")
	}
	e.stopRequested.Store(true)
	e.logger.Info("Stop requested, finishing current actions")
	return nil
}

// SetStrategy switches the exploration policy of every running explorer and of
// future sessions
func (e *Engine) SetStrategy(name strategies.StrategyName) error {
	if _, err := strategies.ParseStrategy(string(name)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, x := range e.explorers {
		if err := x.strategist.SetStrategy(name); err != nil {
			return err
		}
	}
	e.config.Strategy = name
	return nil
}

// Discover runs one exploration session and returns the discovered graph. The
// result is non-nil unless the engine is already running; on failure it holds the
// partial graph and the error is also returned.
func (e *Engine) Discover(ctx context.Context) (*DiscoveryResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.session = newSession(uuid.New().String(), e.config)
	e.store = graph.NewStore(e.config.MaxStates, e.logger)
	e.ledger = strategies.NewAttemptLedger()
	e.explorers = nil
	e.stopRequested.Store(false)
	e.budgetHit.Store(false)
	e.sequence = 0
	session, store := e.session, e.store
	e.mu.Unlock()

	e.interactionsMu.Lock()
	e.interactions = nil
	e.interactionsMu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"strategy":   e.config.Strategy,
		"explorers":  e.config.ParallelExplorers,
		"max_states": e.config.MaxStates,
		"max_depth":  e.config.MaxDepth,
	}).Info("Starting exploration session")

	runCtx := ctx
	if e.config.MaxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.MaxDuration)
		defer cancel()
	}

	status, runErr := e.run(runCtx, session, store)
	if err := session.transition(status, runErr); err != nil {
		e.logger.WithError(err).Error("Session lifecycle violation")
	}

	result := e.buildResult(session, store)
	e.emit(ExplorationCompletedEvent{
		Status:   result.Status,
		Metrics:  result.Metrics,
		Coverage: result.Coverage,
	})
	e.closeChannels()

	return result, result.Err
}

// run executes the session and decides its terminal status
func (e *Engine) run(ctx context.Context, session *Session, store *graph.Store) (SessionStatus, error) {
	first, initial, err := e.initialize(ctx, session, store)
	if err != nil {
		e.emit(ErrorEvent{Err: err, Context: "initial context", Fatal: true})
		return StatusFailed, err
	}

	if err := session.transition(StatusExploring, nil); err != nil {
		return StatusFailed, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.config.ParallelExplorers; i++ {
		id := i
		group.Go(func() error {
			x := first
			if id > 0 {
				var err error
				x, err = e.newExplorer(groupCtx, id)
				if err != nil {
					// A secondary explorer that cannot start only reduces parallelism
					e.emit(ErrorEvent{Err: err, Context: fmt.Sprintf("explorer %d", id)})
					return nil
				}
			}
			defer x.release()
			x.seed(initial)
			return x.run(groupCtx)
		})
	}
	err = group.Wait()

	switch {
	case err != nil:
		e.emit(ErrorEvent{Err: err, Context: "exploration loop", Fatal: true})
		return StatusFailed, err
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return StatusTimeout, nil
	default:
		return StatusCompleted, nil
	}
}

// initialize opens the first explorer, captures the initial observation and
// records it as the initial state
func (e *Engine) initialize(ctx context.Context, session *Session, store *graph.Store) (*explorer, *strategies.FrontierEntry, error) {
	x, err := e.newExplorer(ctx, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInitialContext, err)
	}

	obs, err := x.capture(ctx)
	if err != nil {
		x.release()
		return nil, nil, fmt.Errorf("%w: failed to capture initial observation: %v", ErrInitialContext, err)
	}

	id, isNew, err := store.InsertOrFind(obs)
	if err != nil {
		x.release()
		return nil, nil, fmt.Errorf("%w: %v", ErrInitialContext, err)
	}
	if err := store.SetInitial(id); err != nil {
		x.release()
		return nil, nil, err
	}
	if err := store.RecordActionSpace(id, obs.Actions); err != nil {
		x.release()
		return nil, nil, err
	}
	if len(obs.ErrorSignals) > 0 {
		if err := store.MarkError(id, true); err != nil {
			x.release()
			return nil, nil, fmt.Errorf("failed to mark error state: %w", err)
		}
	}
	x.current = obs

	session.Metrics.StatesDiscovered.Add(1)
	state, err := store.State(id)
	if err != nil {
		x.release()
		return nil, nil, fmt.Errorf("failed to load initial state: %w", err)
	}
	e.emit(StateDiscoveredEvent{State: state, IsNew: isNew, Depth: 0, Explorer: 0})

	e.mu.Lock()
	e.explorers = append(e.explorers, x)
	e.mu.Unlock()

	return x, &strategies.FrontierEntry{
		StateID:     id,
		Depth:       0,
		Observation: obs,
		IsError:     len(obs.ErrorSignals) > 0,
	}, nil
}

// newExplorer opens a live context and builds an explorer around it
func (e *Engine) newExplorer(ctx context.Context, id int) (*explorer, error) {
	live, err := e.target.NewContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create live context for explorer %d: %w", id, err)
	}

	seed := e.config.Seed
	if seed != 0 {
		seed += int64(id)
	}
	e.mu.RLock()
	ledger := e.ledger
	e.mu.RUnlock()

	strategist, err := strategies.NewStrategist(e.config.Strategy, strategies.Options{
		MaxDepth: e.config.MaxDepth,
		Seed:     seed,
		Ledger:   ledger,
	}, e.logger)
	if err != nil {
		_ = e.target.ReleaseContext(live)
		return nil, err
	}

	x := &explorer{
		id:         id,
		engine:     e,
		live:       live,
		frontier:   strategies.NewFrontier(),
		strategist: strategist,
		processed:  make(map[string]bool),
		logger:     e.logger.WithField("explorer", id),
	}

	if id > 0 {
		e.mu.Lock()
		e.explorers = append(e.explorers, x)
		e.mu.Unlock()
	}
	return x, nil
}

// shouldStop is checked at frontier pops and between actions
func (e *Engine) shouldStop(ctx context.Context) bool {
	if e.stopRequested.Load() || e.budgetHit.Load() || ctx.Err() != nil {
		return true
	}
	session, store := e.Session(), e.Store()
	if store.Len() >= e.config.MaxStates {
		e.budgetHit.Store(true)
		return true
	}
	if e.config.MaxActions > 0 && session.Metrics.ActionsPerformed.Load() >= int64(e.config.MaxActions) {
		e.budgetHit.Store(true)
		return true
	}
	return false
}

// emit stamps and delivers an event to every reporter in order
func (e *Engine) emit(ev Event) {
	e.mu.RLock()
	reporters := make([]Reporter, len(e.reporters))
	copy(reporters, e.reporters)
	sessionID := ""
	if e.session != nil {
		sessionID = e.session.ID
	}
	e.mu.RUnlock()

	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.sequence++
	ev = withMeta(ev, EventMeta{SessionID: sessionID, Sequence: e.sequence, Timestamp: time.Now()})
	for _, r := range reporters {
		r.OnEvent(ev)
	}
}

// closeChannels ends every channel subscription opened for this session
func (e *Engine) closeChannels() {
	e.mu.Lock()
	channels := e.channels
	e.channels = nil
	kept := e.reporters[:0]
	for _, r := range e.reporters {
		if _, isChannel := r.(*ChannelReporter); !isChannel {
			kept = append(kept, r)
		}
	}
	e.reporters = kept
	e.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}

func (e *Engine) recordInteraction(i *Interaction) {
	e.interactionsMu.Lock()
	defer e.interactionsMu.Unlock()
	e.interactions = append(e.interactions, i)
}

// Interactions returns a copy of the interaction log of the current session
func (e *Engine) Interactions() []*Interaction {
	e.interactionsMu.Lock()
	defer e.interactionsMu.Unlock()
	out := make([]*Interaction, len(e.interactions))
	copy(out, e.interactions)
	return out
}

func (e *Engine) similarEnough(candidate, obs *interfaces.Observation) bool {
	cmp := e.comparator.Compare(candidate, obs)
	return cmp.VisualSimilarity >= mergeVisualThreshold && cmp.CombinedStructural >= mergeStructuralThreshold
}

// buildResult snapshots the store and serializes the graph
func (e *Engine) buildResult(session *Session, store *graph.Store) *DiscoveryResult {
	snapshot := store.Snapshot()

	result := &DiscoveryResult{
		SessionID:      session.ID,
		Status:         session.Status(),
		Err:            session.Err(),
		States:         snapshot.States,
		Transitions:    snapshot.Transitions,
		Interactions:   e.Interactions(),
		InitialStateID: snapshot.InitialStateID,
		Statistics:     snapshot.Statistics,
		Coverage:       snapshot.Coverage,
		HitRate:        store.HitRate(),
		Metrics:        session.Metrics.snapshot(session.StartTime),
		GraphFormat:    e.serializer.Codec().Name(),
		StartTime:      session.StartTime,
		EndTime:        session.EndTime(),
	}

	data, err := e.serializer.Serialize(snapshot)
	if err != nil {
		e.emit(ErrorEvent{Err: err, Context: "graph serialization"})
	} else {
		result.SerializedGraph = data
	}

	e.logger.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"status":      result.Status,
		"states":      len(result.States),
		"transitions": len(result.Transitions),
		"coverage":    result.Coverage,
		"cycles":      result.Statistics.CycleCount,
		"max_depth":   result.Statistics.MaxDepth,
	}).Info("Exploration session finished")

	return result
}
