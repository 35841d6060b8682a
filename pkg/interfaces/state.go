/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: state.go
Description: Observation and action types shared by every exploration component. An
Observation is a fingerprinted snapshot of the target at one instant; an ActionDescriptor
is a candidate operation that can be attempted from the state it was enumerated in.
*/

package interfaces

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ActionKind enumerates the kinds of actions the explorer knows how to score
type ActionKind string

const (
	ActionLink     ActionKind = "link"
	ActionButton   ActionKind = "button"
	ActionInput    ActionKind = "input"
	ActionSelect   ActionKind = "select"
	ActionCheckbox ActionKind = "checkbox"
	ActionSubmit   ActionKind = "submit"
	ActionScroll   ActionKind = "scroll"
	ActionHover    ActionKind = "hover"
	ActionCustom   ActionKind = "custom"
)

// IsFormKind reports whether the kind belongs to form interaction
func (k ActionKind) IsFormKind() bool {
	switch k {
	case ActionInput, ActionSelect, ActionCheckbox, ActionSubmit:
		return true
	}
	return false
}

// IsNavigationKind reports whether the kind usually moves the target elsewhere
func (k ActionKind) IsNavigationKind() bool {
	return k == ActionLink
}

// ActionDescriptor is a candidate action supplied by an ActionSpaceProvider
type ActionDescriptor struct {
	TargetRef  string            `json:"target_ref" msgpack:"target_ref"` // Opaque handle (selector, widget id)
	Kind       ActionKind        `json:"kind" msgpack:"kind"`             // Action type
	Confidence float64           `json:"confidence" msgpack:"confidence"` // Provider confidence, 0..1
	Label      string            `json:"label,omitempty" msgpack:"label,omitempty"`
	Visible    bool              `json:"visible" msgpack:"visible"`
	Enabled    bool              `json:"enabled" msgpack:"enabled"`
	Attributes map[string]string `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

// Identity returns the kind:targetRef key used for set comparisons
func (a ActionDescriptor) Identity() string {
	return string(a.Kind) + ":" + a.TargetRef
}

// ViewportContext captures scroll position and viewport size
type ViewportContext struct {
	ScrollX int `json:"scroll_x" msgpack:"scroll_x"`
	ScrollY int `json:"scroll_y" msgpack:"scroll_y"`
	Width   int `json:"width" msgpack:"width"`
	Height  int `json:"height" msgpack:"height"`
}

// SameScroll reports whether both viewports sit at the same scroll offset
func (v ViewportContext) SameScroll(other ViewportContext) bool {
	return v.ScrollX == other.ScrollX && v.ScrollY == other.ScrollY
}

// Observation is an immutable snapshot of the target at one instant.
// Produced by an ObservationCapturer; the explorer never mutates it.
type Observation struct {
	Location              string             `json:"location,omitempty" msgpack:"location,omitempty"` // URL or screen name
	VisualFingerprint     string             `json:"visual_fingerprint" msgpack:"visual_fingerprint"`
	StructuralFingerprint string             `json:"structural_fingerprint" msgpack:"structural_fingerprint"`
	Viewport              ViewportContext    `json:"viewport" msgpack:"viewport"`
	PersistedContext      map[string]string  `json:"persisted_context,omitempty" msgpack:"persisted_context,omitempty"`
	ActionSpaceSize       int                `json:"action_space_size" msgpack:"action_space_size"`
	Actions               []ActionDescriptor `json:"actions,omitempty" msgpack:"actions,omitempty"`
	VisualData            []byte             `json:"-" msgpack:"-"`                                           // Raw snapshot bytes for pixel diffing
	ErrorSignals          []string           `json:"error_signals,omitempty" msgpack:"error_signals,omitempty"` // Console errors, crash banners
	CapturedAt            time.Time          `json:"captured_at" msgpack:"captured_at"`
}

// Fingerprint returns the combined visual+structural hash used for exact dedup
func (o *Observation) Fingerprint() string {
	if o == nil {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(o.VisualFingerprint))
	h.Write([]byte{0})
	h.Write([]byte(o.StructuralFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// HasVisualData reports whether raw visual bytes were captured
func (o *Observation) HasVisualData() bool {
	return o != nil && len(o.VisualData) > 0
}

// ActionIdentities returns the set of kind:targetRef keys of the observed action space
func (o *Observation) ActionIdentities() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Actions))
	for _, a := range o.Actions {
		set[a.Identity()] = struct{}{}
	}
	return set
}

// PersistedPairs returns the persisted context as a set of key=value strings
func (o *Observation) PersistedPairs() map[string]struct{} {
	set := make(map[string]struct{}, len(o.PersistedContext))
	for k, v := range o.PersistedContext {
		set[k+"="+v] = struct{}{}
	}
	return set
}

// StructuralFingerprintOf hashes an action space into a stable structural fingerprint.
// Capturers without a richer layout model can use it directly.
func StructuralFingerprintOf(actions []ActionDescriptor, extra ...string) string {
	keys := make([]string, 0, len(actions)+len(extra))
	for _, a := range actions {
		keys = append(keys, a.Identity())
	}
	sort.Strings(keys)
	keys = append(keys, extra...)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:16])
}

// ActionOutcome reports how a single action execution went
type ActionOutcome struct {
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}
