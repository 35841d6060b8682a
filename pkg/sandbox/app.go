/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: app.go
Description: Deterministic in-memory target for exercising the explorer without a browser.
An App is a set of pages whose actions navigate, scroll, write persisted context or fail
on purpose. Every live context is an independent cursor over the same pages.
*/

package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/kleascm/akaylee-explorer/pkg/similarity"
)

const locationScheme = "sandbox://"

var (
	// ErrInjectedFailure is reported by actions configured to fail
	ErrInjectedFailure = errors.New("injected action failure")

	// ErrUnknownContext is returned for a live context the app did not create
	ErrUnknownContext = errors.New("unknown live context")
)

// Action is one interactive element on a page
type Action struct {
	Ref    string                // Target reference, unique within the page
	Kind   interfaces.ActionKind // Action kind
	Label  string                // Visible label
	To     string                // Destination page, empty to stay
	Scroll int                   // Vertical scroll delta
	Sets   map[string]string     // Persisted context written by the action, "" deletes and "$payload" stores the last typed text
	Fail   bool                  // Report failure instead of acting
	Hidden bool
}

// Page is one screen of the app
type Page struct {
	Name         string
	Content      string
	Actions      []Action
	ErrorSignals []string
}

// App is an in-memory Target
type App struct {
	mu       sync.RWMutex
	start    string
	pages    map[string]*Page
	cursors  map[string]*cursor
	latency  time.Duration
	failures map[string]bool // Pages whose restore fails

	executions atomic.Int64
	restores   atomic.Int64
	executed   sync.Map // "page|ref" -> *atomic.Int64
}

type cursor struct {
	id      string
	page    string
	scrollY int
	typed   string // Last text typed into an input, not persisted
	storage map[string]string
}

func (c *cursor) ID() string { return c.id }

// NewApp creates an app whose contexts start on the start page
func NewApp(start string) *App {
	return &App{
		start:    start,
		pages:    make(map[string]*Page),
		cursors:  make(map[string]*cursor),
		failures: make(map[string]bool),
	}
}

// AddPage registers a page, replacing any page with the same name
func (a *App) AddPage(page Page) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	copied := page
	copied.Actions = append([]Action(nil), page.Actions...)
	a.pages[page.Name] = &copied
	return a
}

// SetLatency delays every action by d
func (a *App) SetLatency(d time.Duration) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = d
	return a
}

// FailRestore makes restoring to page fail
func (a *App) FailRestore(page string) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[page] = true
	return a
}

// Executions returns the number of Execute calls
func (a *App) Executions() int64 { return a.executions.Load() }

// Restores returns the number of Restore calls
func (a *App) Restores() int64 { return a.restores.Load() }

// ExecutionsOf returns how often ref was executed on page
func (a *App) ExecutionsOf(page, ref string) int64 {
	if v, ok := a.executed.Load(page + "|" + ref); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

// Link is an action that navigates to another page
func Link(ref, to string) Action {
	return Action{Ref: ref, Kind: interfaces.ActionLink, Label: to, To: to}
}

// Button is a button that navigates to another page, or stays when to is empty
func Button(ref, label, to string) Action {
	return Action{Ref: ref, Kind: interfaces.ActionButton, Label: label, To: to}
}

// Input is a text field; typing into it does not change the page
func Input(ref, label string) Action {
	return Action{Ref: ref, Kind: interfaces.ActionInput, Label: label}
}

// Submit is a submit button that navigates to another page, or stays when to is empty
func Submit(ref, to string) Action {
	return Action{Ref: ref, Kind: interfaces.ActionSubmit, Label: "Submit", To: to}
}

// NewContext opens a cursor on the start page
func (a *App) NewContext(_ context.Context, explorer int) (interfaces.LiveContext, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pages[a.start]; !ok {
		return nil, fmt.Errorf("start page %q is not defined", a.start)
	}
	c := &cursor{
		id:      fmt.Sprintf("sandbox-%d-%s", explorer, uuid.New().String()[:8]),
		page:    a.start,
		storage: make(map[string]string),
	}
	a.cursors[c.id] = c
	return c, nil
}

// ReleaseContext closes a cursor
func (a *App) ReleaseContext(live interfaces.LiveContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.cursors[live.ID()]; !ok {
		return ErrUnknownContext
	}
	delete(a.cursors, live.ID())
	return nil
}

// OpenContexts returns the number of unreleased cursors
func (a *App) OpenContexts() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cursors)
}

// Enumerate lists the actions of the cursor's page
func (a *App) Enumerate(_ context.Context, live interfaces.LiveContext) ([]interfaces.ActionDescriptor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, page, err := a.lookup(live)
	if err != nil {
		return nil, err
	}
	return describe(page), nil
}

// Execute performs the action identified by the descriptor's target reference
func (a *App) Execute(ctx context.Context, live interfaces.LiveContext, action interfaces.ActionDescriptor, payload string) (interfaces.ActionOutcome, error) {
	start := time.Now()
	a.executions.Add(1)

	a.mu.RLock()
	latency := a.latency
	a.mu.RUnlock()
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return interfaces.ActionOutcome{Duration: time.Since(start)}, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	c, page, err := a.lookup(live)
	if err != nil {
		return interfaces.ActionOutcome{}, err
	}
	var found *Action
	for i := range page.Actions {
		if page.Actions[i].Ref == action.TargetRef {
			found = &page.Actions[i]
			break
		}
	}
	if found == nil {
		return interfaces.ActionOutcome{Duration: time.Since(start)}, fmt.Errorf("no element %q on page %s", action.TargetRef, page.Name)
	}

	counter, _ := a.executed.LoadOrStore(page.Name+"|"+found.Ref, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	if found.Fail {
		return interfaces.ActionOutcome{Success: false, Duration: time.Since(start), Err: ErrInjectedFailure}, nil
	}

	if found.To != "" {
		if _, ok := a.pages[found.To]; !ok {
			return interfaces.ActionOutcome{Duration: time.Since(start)}, fmt.Errorf("page %q is not defined", found.To)
		}
		c.page = found.To
		c.scrollY = 0
	}
	c.scrollY += found.Scroll
	if found.Kind == interfaces.ActionInput {
		c.typed = payload
	}
	for k, v := range found.Sets {
		switch v {
		case "":
			delete(c.storage, k)
		case "$payload":
			c.storage[k] = c.typed
		default:
			c.storage[k] = v
		}
	}

	return interfaces.ActionOutcome{Success: true, Duration: time.Since(start)}, nil
}

// Capture snapshots the cursor
func (a *App) Capture(_ context.Context, live interfaces.LiveContext) (*interfaces.Observation, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, page, err := a.lookup(live)
	if err != nil {
		return nil, err
	}

	actions := describe(page)
	render := renderPage(page, c.storage)
	sum := sha256.Sum256(render)

	storage := make(map[string]string, len(c.storage))
	for k, v := range c.storage {
		storage[k] = v
	}

	return &interfaces.Observation{
		Location:              locationScheme + page.Name,
		VisualFingerprint:     hex.EncodeToString(sum[:]),
		StructuralFingerprint: interfaces.StructuralFingerprintOf(actions, page.Name),
		Viewport:              interfaces.ViewportContext{ScrollY: c.scrollY, Width: 1280, Height: 720},
		PersistedContext:      storage,
		ActionSpaceSize:       len(actions),
		Actions:               actions,
		VisualData:            render,
		ErrorSignals:          append([]string(nil), page.ErrorSignals...),
		CapturedAt:            time.Now(),
	}, nil
}

// Restore moves the cursor to the observation's page, scroll and persisted context
func (a *App) Restore(_ context.Context, live interfaces.LiveContext, target *interfaces.Observation) error {
	a.restores.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.cursors[live.ID()]
	if !ok {
		return ErrUnknownContext
	}
	name := strings.TrimPrefix(target.Location, locationScheme)
	if _, ok := a.pages[name]; !ok {
		return fmt.Errorf("cannot restore unknown location %q", target.Location)
	}
	if a.failures[name] {
		return fmt.Errorf("restore to %s refused", name)
	}

	c.page = name
	c.scrollY = target.Viewport.ScrollY
	c.typed = ""
	c.storage = make(map[string]string, len(target.PersistedContext))
	for k, v := range target.PersistedContext {
		c.storage[k] = v
	}
	return nil
}

// Wait returns immediately; the app has no asynchronous work
func (a *App) Wait(ctx context.Context, _ interfaces.LiveContext, _ time.Duration) error {
	return ctx.Err()
}

// Similarity compares two rendered pages line by line
func (a *App) Similarity(x, y *interfaces.Observation) (float64, error) {
	if x == nil || y == nil {
		return 0, fmt.Errorf("cannot compare nil observations")
	}
	return similarity.Jaccard(lines(x.VisualData), lines(y.VisualData)), nil
}

func (a *App) lookup(live interfaces.LiveContext) (*cursor, *Page, error) {
	if live == nil {
		return nil, nil, ErrUnknownContext
	}
	c, ok := a.cursors[live.ID()]
	if !ok {
		return nil, nil, ErrUnknownContext
	}
	page, ok := a.pages[c.page]
	if !ok {
		return nil, nil, fmt.Errorf("page %q is not defined", c.page)
	}
	return c, page, nil
}

func describe(page *Page) []interfaces.ActionDescriptor {
	actions := make([]interfaces.ActionDescriptor, 0, len(page.Actions))
	for _, act := range page.Actions {
		actions = append(actions, interfaces.ActionDescriptor{
			TargetRef:  act.Ref,
			Kind:       act.Kind,
			Confidence: 1,
			Label:      act.Label,
			Visible:    !act.Hidden,
			Enabled:    true,
		})
	}
	return actions
}

// renderPage is the app's stand-in for a screenshot
func renderPage(page *Page, storage map[string]string) []byte {
	var b strings.Builder
	b.WriteString("# " + page.Name + "\n")
	if page.Content != "" {
		b.WriteString(page.Content + "\n")
	}
	for _, act := range page.Actions {
		if act.Hidden {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", act.Kind, act.Label)
	}
	keys := make([]string, 0, len(storage))
	for k := range storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, storage[k])
	}
	return []byte(b.String())
}

func lines(data []byte) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			set[line] = struct{}{}
		}
	}
	return set
}
