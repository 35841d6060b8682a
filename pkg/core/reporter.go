/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for exploration telemetry. Supports
logging, Prometheus metrics and channel delivery of the typed event stream.
*/

package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Reporter observes exploration events. Events arrive in order, one at a time.
type Reporter interface {
	OnEvent(event Event)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(event Event)

// OnEvent calls f(event)
func (f ReporterFunc) OnEvent(event Event) { f(event) }

// LoggerReporter logs events using logrus
type LoggerReporter struct {
	logger *logrus.Logger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger *logrus.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnEvent logs the event at a level matching its importance
func (r *LoggerReporter) OnEvent(event Event) {
	fields := logrus.Fields{"session_id": event.Meta().SessionID, "seq": event.Meta().Sequence}

	switch e := event.(type) {
	case StateDiscoveredEvent:
		fields["state_id"] = e.State.ID
		fields["depth"] = e.Depth
		fields["explorer"] = e.Explorer
		if e.IsNew {
			r.logger.WithFields(fields).Info("State discovered")
		} else {
			r.logger.WithFields(fields).Debug("State revisited")
		}
	case TransitionFoundEvent:
		fields["from"] = e.Transition.FromStateID
		fields["to"] = e.Transition.ToStateID
		fields["action"] = string(e.Transition.ActionKind) + ":" + e.Transition.TargetRef
		fields["count"] = e.Transition.Count
		r.logger.WithFields(fields).Debug("Transition recorded")
	case InteractionCompletedEvent:
		fields["action"] = e.Interaction.Action.Identity()
		fields["duration"] = e.Interaction.Duration
		r.logger.WithFields(fields).Debug("Interaction completed")
	case InteractionFailedEvent:
		fields["action"] = e.Interaction.Action.Identity()
		fields["state_id"] = e.Interaction.FromStateID
		r.logger.WithFields(fields).WithError(e.Err).Warn("Interaction failed")
	case InteractionCancelledEvent:
		fields["action"] = e.Interaction.Action.Identity()
		fields["state_id"] = e.Interaction.FromStateID
		r.logger.WithFields(fields).Debug("Interaction cancelled")
	case ExplorationProgressEvent:
		fields["discovered"] = e.Discovered
		fields["depth"] = e.Depth
		fields["frontier"] = e.FrontierSize
		r.logger.WithFields(fields).Info("Explorer progress")
	case ExplorationCompletedEvent:
		fields["status"] = e.Status
		fields["states"] = e.Metrics.StatesDiscovered
		fields["transitions"] = e.Metrics.TransitionsFound
		fields["actions"] = e.Metrics.ActionsPerformed
		fields["failed"] = e.Metrics.FailedActions
		fields["cancelled"] = e.Metrics.CancelledActions
		fields["coverage"] = e.Coverage
		fields["elapsed"] = e.Metrics.Elapsed
		r.logger.WithFields(fields).Info("Exploration session finished")
	case ErrorEvent:
		fields["context"] = e.Context
		fields["fatal"] = e.Fatal
		if e.Fatal {
			r.logger.WithFields(fields).WithError(e.Err).Error("Exploration error")
		} else {
			r.logger.WithFields(fields).WithError(e.Err).Warn("Exploration error")
		}
	}
}

// PrometheusReporter exports exploration metrics
type PrometheusReporter struct {
	states       *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	interactions *prometheus.CounterVec
	actionTime   prometheus.Histogram
	frontier     prometheus.Gauge
	coverage     prometheus.Gauge
	errors       *prometheus.CounterVec
	sessions     *prometheus.CounterVec
}

// NewPrometheusReporter registers exploration metrics with reg. A nil reg uses the
// default registerer.
func NewPrometheusReporter(reg prometheus.Registerer) *PrometheusReporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusReporter{
		states: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akaylee_explorer_states_total",
			Help: "States reached by an action, by novelty",
		}, []string{"novelty"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akaylee_explorer_transitions_total",
			Help: "Transitions recorded, by novelty",
		}, []string{"novelty"}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akaylee_explorer_interactions_total",
			Help: "Executed actions by kind and result",
		}, []string{"kind", "result"}),
		actionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "akaylee_explorer_action_duration_seconds",
			Help:    "Action execution duration",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		frontier: factory.NewGauge(prometheus.GaugeOpts{
			Name: "akaylee_explorer_frontier_size",
			Help: "Frontier size at the last progress report",
		}),
		coverage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "akaylee_explorer_coverage_ratio",
			Help: "Action coverage of the last finished session",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akaylee_explorer_errors_total",
			Help: "Exploration errors by severity",
		}, []string{"severity"}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akaylee_explorer_sessions_total",
			Help: "Finished sessions by status",
		}, []string{"status"}),
	}
}

// OnEvent updates the metrics for the event
func (r *PrometheusReporter) OnEvent(event Event) {
	switch e := event.(type) {
	case StateDiscoveredEvent:
		r.states.WithLabelValues(novelty(e.IsNew)).Inc()
	case TransitionFoundEvent:
		r.transitions.WithLabelValues(novelty(e.IsNew)).Inc()
	case InteractionCompletedEvent:
		r.interactions.WithLabelValues(string(e.Interaction.Action.Kind), "success").Inc()
		r.actionTime.Observe(e.Interaction.Duration.Seconds())
	case InteractionFailedEvent:
		r.interactions.WithLabelValues(string(e.Interaction.Action.Kind), "failure").Inc()
		r.actionTime.Observe(e.Interaction.Duration.Seconds())
	case InteractionCancelledEvent:
		r.interactions.WithLabelValues(string(e.Interaction.Action.Kind), "cancelled").Inc()
	case ExplorationProgressEvent:
		r.frontier.Set(float64(e.FrontierSize))
	case ExplorationCompletedEvent:
		r.sessions.WithLabelValues(string(e.Status)).Inc()
		r.coverage.Set(e.Coverage)
	case ErrorEvent:
		severity := "recoverable"
		if e.Fatal {
			severity = "fatal"
		}
		r.errors.WithLabelValues(severity).Inc()
	}
}

func novelty(isNew bool) string {
	if isNew {
		return "new"
	}
	return "existing"
}

// ChannelReporter delivers every event on a channel, in order. Events are queued
// in memory and forwarded by a pump goroutine, so a slow reader never blocks the
// engine and nothing is dropped. The channel is closed after Close once the queue
// has drained; a subscriber must read until then.
type ChannelReporter struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	out    chan Event
}

// NewChannelReporter creates a channel reporter. buffer sizes the outgoing channel.
func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer < 0 {
		buffer = 0
	}
	r := &ChannelReporter{
		wake: make(chan struct{}, 1),
		out:  make(chan Event, buffer),
	}
	go r.pump()
	return r
}

// OnEvent queues the event for delivery
func (r *ChannelReporter) OnEvent(event Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, event)
	r.mu.Unlock()
	r.notify()
}

// Events returns the receive side of the channel
func (r *ChannelReporter) Events() <-chan Event {
	return r.out
}

// Close stops accepting events. Queued events are still delivered.
func (r *ChannelReporter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.notify()
}

func (r *ChannelReporter) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *ChannelReporter) pump() {
	defer close(r.out)
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		closed := r.closed
		r.mu.Unlock()

		for _, event := range batch {
			r.out <- event
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.wake
	}
}
