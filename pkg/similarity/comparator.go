/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: comparator.go
Description: State similarity comparator. Decides whether two observations describe the
same state using a weighted blend of visual, structural, viewport and persisted-context
signals, and reports per-category differences for diagnostics.
*/

package similarity

import (
	"fmt"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// DifferenceCategory groups a difference by the signal that produced it
type DifferenceCategory string

const (
	CategoryVisual      DifferenceCategory = "visual"
	CategoryStructural  DifferenceCategory = "structural"
	CategoryContent     DifferenceCategory = "content"
	CategoryInteraction DifferenceCategory = "interaction"
)

// Severity grades how far a sub-score fell below its threshold
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Difference is one flagged divergence between two observations
type Difference struct {
	Category    DifferenceCategory `json:"category"`
	Severity    Severity           `json:"severity"`
	Score       float64            `json:"score"` // Sub-score that tripped the threshold
	Description string             `json:"description"`
}

// Comparison is the outcome of comparing two observations
type Comparison struct {
	VisualSimilarity     float64      `json:"visual_similarity"`
	StructuralSimilarity float64      `json:"structural_similarity"` // Raw action-set Jaccard
	CombinedStructural   float64      `json:"combined_structural"`   // Weighted with viewport and persisted context
	ViewportMatch        float64      `json:"viewport_match"`
	ContextSimilarity    float64      `json:"context_similarity"`
	Identical            bool         `json:"identical"`
	Degraded             bool         `json:"degraded"` // Visual diff failed and scored 0
	Differences          []Difference `json:"differences,omitempty"`
}

// Thresholds holds the cut-offs used by Compare
type Thresholds struct {
	Visual      float64 `json:"visual" validate:"gte=0,lte=1"`
	Structural  float64 `json:"structural" validate:"gte=0,lte=1"`
	Content     float64 `json:"content" validate:"gte=0,lte=1"`
	Interaction float64 `json:"interaction" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the standard identical/difference cut-offs
func DefaultThresholds() Thresholds {
	return Thresholds{
		Visual:      0.95,
		Structural:  0.90,
		Content:     0.5,
		Interaction: 0.8,
	}
}

const (
	weightStructural = 0.7
	weightViewport   = 0.2
	weightContext    = 0.1

	scrolledViewportMatch = 0.8
)

// Comparator compares observations. Safe for concurrent use: it holds no mutable state.
type Comparator struct {
	differ       interfaces.VisualDiffer
	enableVisual bool
	thresholds   Thresholds
	logger       *logrus.Logger
}

// Option configures a Comparator
type Option func(*Comparator)

// WithVisualDiffer plugs in a pixel-diff capability
func WithVisualDiffer(differ interfaces.VisualDiffer) Option {
	return func(c *Comparator) {
		c.differ = differ
		c.enableVisual = differ != nil
	}
}

// WithThresholds overrides the default thresholds
func WithThresholds(t Thresholds) Option {
	return func(c *Comparator) {
		c.thresholds = t
	}
}

// WithLogger sets the logger used for degraded comparisons
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Comparator) {
		c.logger = logger
	}
}

// NewComparator creates a comparator with default thresholds
func NewComparator(opts ...Option) *Comparator {
	c := &Comparator{
		thresholds: DefaultThresholds(),
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVisualDiffEnabled toggles use of the pixel-diff capability
func (c *Comparator) SetVisualDiffEnabled(enabled bool) {
	c.enableVisual = enabled && c.differ != nil
}

// Compare decides whether next describes the same state as prior
func (c *Comparator) Compare(prior, next *interfaces.Observation) Comparison {
	if prior == nil || next == nil {
		return Comparison{
			Differences: []Difference{{
				Category:    CategoryStructural,
				Severity:    SeverityCritical,
				Description: "missing observation",
			}},
		}
	}

	// Fast path
	if prior.VisualFingerprint == next.VisualFingerprint &&
		prior.StructuralFingerprint == next.StructuralFingerprint {
		return Comparison{
			VisualSimilarity:     1,
			StructuralSimilarity: 1,
			CombinedStructural:   1,
			ViewportMatch:        1,
			ContextSimilarity:    1,
			Identical:            true,
		}
	}

	cmp := Comparison{}
	cmp.VisualSimilarity, cmp.Degraded = c.visualSimilarity(prior, next)
	cmp.StructuralSimilarity = Jaccard(prior.ActionIdentities(), next.ActionIdentities())

	cmp.ViewportMatch = 1.0
	if !prior.Viewport.SameScroll(next.Viewport) {
		cmp.ViewportMatch = scrolledViewportMatch
	}
	cmp.ContextSimilarity = Jaccard(prior.PersistedPairs(), next.PersistedPairs())
	cmp.CombinedStructural = weightStructural*cmp.StructuralSimilarity +
		weightViewport*cmp.ViewportMatch +
		weightContext*cmp.ContextSimilarity

	cmp.Differences = c.differences(prior, next, cmp)
	cmp.Identical = cmp.VisualSimilarity >= c.thresholds.Visual &&
		cmp.CombinedStructural >= c.thresholds.Structural &&
		len(cmp.Differences) == 0

	return cmp
}

// visualSimilarity asks the differ when both sides carry visual data, otherwise falls
// back to exact hash equality. A differ error scores 0 and marks the comparison degraded.
func (c *Comparator) visualSimilarity(prior, next *interfaces.Observation) (float64, bool) {
	if c.enableVisual && c.differ != nil && prior.HasVisualData() && next.HasVisualData() {
		score, err := c.differ.Similarity(prior, next)
		if err != nil {
			c.logger.WithError(err).Warn("Visual diff failed, treating observations as visually different")
			return 0, true
		}
		return clamp01(score), false
	}
	if prior.VisualFingerprint == next.VisualFingerprint {
		return 1, false
	}
	return 0, false
}

func (c *Comparator) differences(prior, next *interfaces.Observation, cmp Comparison) []Difference {
	var diffs []Difference

	if cmp.VisualSimilarity < c.thresholds.Visual {
		diffs = append(diffs, Difference{
			Category:    CategoryVisual,
			Severity:    severityFor(cmp.VisualSimilarity),
			Score:       cmp.VisualSimilarity,
			Description: fmt.Sprintf("visual similarity %.2f below %.2f", cmp.VisualSimilarity, c.thresholds.Visual),
		})
	}
	if cmp.CombinedStructural < c.thresholds.Structural {
		diffs = append(diffs, Difference{
			Category:    CategoryStructural,
			Severity:    severityFor(cmp.CombinedStructural),
			Score:       cmp.CombinedStructural,
			Description: fmt.Sprintf("structural similarity %.2f below %.2f", cmp.CombinedStructural, c.thresholds.Structural),
		})
	}
	if cmp.ContextSimilarity < c.thresholds.Content {
		diffs = append(diffs, Difference{
			Category:    CategoryContent,
			Severity:    severityFor(cmp.ContextSimilarity),
			Score:       cmp.ContextSimilarity,
			Description: fmt.Sprintf("persisted context similarity %.2f below %.2f", cmp.ContextSimilarity, c.thresholds.Content),
		})
	}

	interaction := CountRatio(prior.ActionSpaceSize, next.ActionSpaceSize)
	if interaction < c.thresholds.Interaction {
		diffs = append(diffs, Difference{
			Category:    CategoryInteraction,
			Severity:    severityFor(interaction),
			Score:       interaction,
			Description: fmt.Sprintf("action space changed from %d to %d", prior.ActionSpaceSize, next.ActionSpaceSize),
		})
	}

	return diffs
}

func severityFor(score float64) Severity {
	switch {
	case score < 0.5:
		return SeverityCritical
	case score < 0.8:
		return SeverityMajor
	default:
		return SeverityMinor
	}
}
