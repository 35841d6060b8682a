/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: target.go
Description: Browser-backed exploration target using chromedp. Every explorer gets its
own tab; observations combine the rendered DOM, localStorage, scroll position and an
optional screenshot. Console exceptions and 5xx responses become error signals.
*/

package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTab is returned for a live context this target did not open
var ErrUnknownTab = errors.New("unknown browser tab")

// Options configures the browser target
type Options struct {
	StartURL             string            `json:"start_url" mapstructure:"start_url" validate:"required,url"`
	Scope                []string          `json:"scope" mapstructure:"scope"` // Allowed URL fragments, empty for any
	Headless             bool              `json:"headless" mapstructure:"headless"`
	ExecPath             string            `json:"exec_path" mapstructure:"exec_path"` // Chrome binary, empty to search PATH
	ViewportWidth        int               `json:"viewport_width" mapstructure:"viewport_width" validate:"gte=320"`
	ViewportHeight       int               `json:"viewport_height" mapstructure:"viewport_height" validate:"gte=240"`
	Headers              map[string]string `json:"headers" mapstructure:"headers"`
	Cookies              map[string]string `json:"cookies" mapstructure:"cookies"`
	CaptureScreenshots   bool              `json:"capture_screenshots" mapstructure:"capture_screenshots"`
	DetectHiddenElements bool              `json:"detect_hidden_elements" mapstructure:"detect_hidden_elements"`
	PollInterval         time.Duration     `json:"poll_interval" mapstructure:"poll_interval" validate:"gt=0"` // DOM stability polling
}

// DefaultOptions returns headless options for startURL
func DefaultOptions(startURL string) Options {
	return Options{
		StartURL:           startURL,
		Headless:           true,
		ViewportWidth:      1280,
		ViewportHeight:     720,
		CaptureScreenshots: true,
		PollInterval:       150 * time.Millisecond,
	}
}

var optionsValidator = validator.New()

// Validate checks the options
func (o Options) Validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid browser options: %w", err)
	}
	return nil
}

// BrowserTarget drives a Chrome instance through chromedp
type BrowserTarget struct {
	opts        Options
	logger      *logrus.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*tab
}

// tab is one browser tab owned by one explorer
type tab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	signalMu sync.Mutex
	signals  []string // Errors seen since the last capture
}

func (t *tab) ID() string { return t.id }

// NewBrowserTarget prepares a Chrome allocator. Chrome itself starts with the first tab.
func NewBrowserTarget(ctx context.Context, opts Options, logger *logrus.Logger) (*BrowserTarget, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	return &BrowserTarget{
		opts:        opts,
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabs:        make(map[string]*tab),
	}, nil
}

// Close shuts every tab and the browser
func (b *BrowserTarget) Close() error {
	b.mu.Lock()
	for id, t := range b.tabs {
		t.cancel()
		delete(b.tabs, id)
	}
	b.mu.Unlock()
	b.allocCancel()
	return nil
}

// NewContext opens a tab, wires event listeners and loads the start page
func (b *BrowserTarget) NewContext(ctx context.Context, explorer int) (interfaces.LiveContext, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	t := &tab{
		id:     fmt.Sprintf("tab-%d-%s", explorer, uuid.New().String()[:8]),
		ctx:    tabCtx,
		cancel: cancel,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			t.signal("exception: " + e.ExceptionDetails.Error())
		case *runtime.EventConsoleAPICalled:
			if e.Type == runtime.APITypeError {
				parts := make([]string, 0, len(e.Args))
				for _, arg := range e.Args {
					parts = append(parts, strings.Trim(string(arg.Value), `"`))
				}
				t.signal("console: " + strings.Join(parts, " "))
			}
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument && e.Response.Status >= 500 {
				t.signal(fmt.Sprintf("http: %d %s", e.Response.Status, e.Response.URL))
			}
		}
	})

	// The first Run starts the tab and must use the tab context itself
	setup := []chromedp.Action{
		network.Enable(),
		runtime.Enable(),
		chromedp.EmulateViewport(int64(b.opts.ViewportWidth), int64(b.opts.ViewportHeight)),
	}
	if len(b.opts.Headers) > 0 {
		headers := make(network.Headers, len(b.opts.Headers))
		for k, v := range b.opts.Headers {
			headers[k] = v
		}
		setup = append(setup, network.SetExtraHTTPHeaders(headers))
	}
	for name, value := range b.opts.Cookies {
		setup = append(setup, network.SetCookie(name, value).WithURL(b.opts.StartURL))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser tab: %w", err)
	}

	if err := t.run(ctx, chromedp.Navigate(b.opts.StartURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open %s: %w", b.opts.StartURL, err)
	}

	b.mu.Lock()
	b.tabs[t.id] = t
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"tab":      t.id,
		"explorer": explorer,
		"url":      b.opts.StartURL,
	}).Debug("Browser tab opened")
	return t, nil
}

// ReleaseContext closes the tab
func (b *BrowserTarget) ReleaseContext(live interfaces.LiveContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[live.ID()]
	if !ok {
		return ErrUnknownTab
	}
	t.cancel()
	delete(b.tabs, live.ID())
	return nil
}

// Enumerate extracts the interactive elements of the current page
func (b *BrowserTarget) Enumerate(ctx context.Context, live interfaces.LiveContext) ([]interfaces.ActionDescriptor, error) {
	t, err := b.tab(live)
	if err != nil {
		return nil, err
	}
	var dom string
	if err := t.run(ctx, chromedp.OuterHTML("html", &dom, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read DOM: %w", err)
	}
	return b.actionsFor(dom)
}

func (b *BrowserTarget) actionsFor(dom string) ([]interfaces.ActionDescriptor, error) {
	actions, err := ExtractActions(dom, ExtractOptions{IncludeHidden: b.opts.DetectHiddenElements})
	if err != nil {
		return nil, err
	}

	// Links leaving the scope are not offered
	kept := actions[:0]
	for _, a := range actions {
		if a.Kind == interfaces.ActionLink {
			if href := a.Attributes["href"]; strings.HasPrefix(href, "http") && !InScope(href, b.opts.Scope) {
				continue
			}
		}
		kept = append(kept, a)
	}
	return kept, nil
}

// Execute performs one action on the tab
func (b *BrowserTarget) Execute(ctx context.Context, live interfaces.LiveContext, action interfaces.ActionDescriptor, payload string) (interfaces.ActionOutcome, error) {
	start := time.Now()
	t, err := b.tab(live)
	if err != nil {
		return interfaces.ActionOutcome{}, err
	}

	sel := action.TargetRef
	var task chromedp.Tasks
	switch action.Kind {
	case interfaces.ActionInput:
		if payload == "" {
			payload = DefaultPayload(action)
		}
		task = chromedp.Tasks{
			chromedp.Clear(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, payload, chromedp.ByQuery),
		}
	case interfaces.ActionSelect:
		task = chromedp.Tasks{chromedp.Evaluate(fmt.Sprintf(selectScript, quoteJS(sel), quoteJS(payload)), nil)}
	case interfaces.ActionScroll:
		task = chromedp.Tasks{chromedp.ScrollIntoView(sel, chromedp.ByQuery)}
	case interfaces.ActionHover:
		task = chromedp.Tasks{chromedp.Evaluate(fmt.Sprintf(hoverScript, quoteJS(sel)), nil)}
	default:
		task = chromedp.Tasks{chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)}
	}

	if err := t.run(ctx, task); err != nil {
		outcome := interfaces.ActionOutcome{Success: false, Duration: time.Since(start), Err: err}
		return outcome, fmt.Errorf("failed to execute %s: %w", action.Identity(), err)
	}
	return interfaces.ActionOutcome{Success: true, Duration: time.Since(start)}, nil
}

// Capture snapshots the tab
func (b *BrowserTarget) Capture(ctx context.Context, live interfaces.LiveContext) (*interfaces.Observation, error) {
	t, err := b.tab(live)
	if err != nil {
		return nil, err
	}

	var (
		location string
		dom      string
		storage  map[string]string
		viewport viewportInfo
		shot     []byte
	)
	tasks := chromedp.Tasks{
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
		chromedp.Evaluate(readStorageScript, &storage),
		chromedp.Evaluate(viewportScript, &viewport),
	}
	if b.opts.CaptureScreenshots {
		tasks = append(tasks, chromedp.CaptureScreenshot(&shot))
	}
	if err := t.run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to capture tab: %w", err)
	}

	actions, err := b.actionsFor(dom)
	if err != nil {
		return nil, err
	}
	skeleton, err := StructuralSkeleton(dom)
	if err != nil {
		return nil, err
	}
	text, err := VisibleText(dom)
	if err != nil {
		return nil, err
	}
	visual := sha256.Sum256([]byte(text))

	signals := append(t.drainSignals(), ErrorSignalsFromDOM(dom)...)

	return &interfaces.Observation{
		Location:              location,
		VisualFingerprint:     hex.EncodeToString(visual[:]),
		StructuralFingerprint: interfaces.StructuralFingerprintOf(actions, skeleton),
		Viewport: interfaces.ViewportContext{
			ScrollX: viewport.ScrollX,
			ScrollY: viewport.ScrollY,
			Width:   viewport.Width,
			Height:  viewport.Height,
		},
		PersistedContext: storage,
		ActionSpaceSize:  len(actions),
		Actions:          actions,
		VisualData:       shot,
		ErrorSignals:     signals,
		CapturedAt:       time.Now(),
	}, nil
}

// Restore navigates to the observation's URL, rewrites localStorage and reloads
func (b *BrowserTarget) Restore(ctx context.Context, live interfaces.LiveContext, target *interfaces.Observation) error {
	t, err := b.tab(live)
	if err != nil {
		return err
	}
	if target == nil || target.Location == "" {
		return fmt.Errorf("observation has no location to restore")
	}

	storage := target.PersistedContext
	if storage == nil {
		storage = map[string]string{}
	}
	encoded, err := json.Marshal(storage)
	if err != nil {
		return fmt.Errorf("failed to encode persisted context: %w", err)
	}

	tasks := chromedp.Tasks{
		chromedp.Navigate(target.Location),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(writeStorageScript, string(encoded)), nil),
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf("window.scrollTo(%d, %d)", target.Viewport.ScrollX, target.Viewport.ScrollY), nil),
	}
	if err := t.run(ctx, tasks); err != nil {
		return fmt.Errorf("failed to restore %s: %w", target.Location, err)
	}
	t.drainSignals()
	return nil
}

// Wait polls the DOM until two consecutive reads match
func (b *BrowserTarget) Wait(ctx context.Context, live interfaces.LiveContext, timeout time.Duration) error {
	t, err := b.tab(live)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	previous := ""
	for {
		var dom string
		if err := t.run(wctx, chromedp.OuterHTML("html", &dom, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("failed to poll DOM: %w", err)
		}
		sum := sha256.Sum256([]byte(dom))
		current := hex.EncodeToString(sum[:])
		if current == previous {
			return nil
		}
		previous = current

		select {
		case <-wctx.Done():
			return fmt.Errorf("page still changing after %s", timeout)
		case <-ticker.C:
		}
	}
}

func (b *BrowserTarget) tab(live interfaces.LiveContext) (*tab, error) {
	if live == nil {
		return nil, ErrUnknownTab
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[live.ID()]
	if !ok {
		return nil, ErrUnknownTab
	}
	return t, nil
}

// run executes actions on the tab, bounded by ctx
func (t *tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (t *tab) signal(s string) {
	t.signalMu.Lock()
	defer t.signalMu.Unlock()
	t.signals = append(t.signals, s)
}

func (t *tab) drainSignals() []string {
	t.signalMu.Lock()
	defer t.signalMu.Unlock()
	out := t.signals
	t.signals = nil
	return out
}

type viewportInfo struct {
	ScrollX int `json:"x"`
	ScrollY int `json:"y"`
	Width   int `json:"w"`
	Height  int `json:"h"`
}

func quoteJS(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

const (
	viewportScript = `({x: Math.round(window.scrollX), y: Math.round(window.scrollY), w: window.innerWidth, h: window.innerHeight})`

	readStorageScript = `(() => {
	const out = {};
	try {
		for (let i = 0; i < localStorage.length; i++) {
			const k = localStorage.key(i);
			out[k] = localStorage.getItem(k);
		}
	} catch (e) {}
	return out;
})()`

	writeStorageScript = `(() => {
	try {
		localStorage.clear();
		const data = %s;
		for (const k in data) localStorage.setItem(k, data[k]);
	} catch (e) {}
})()`

	selectScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) throw new Error("element not found");
	const wanted = %s;
	let idx = Array.from(el.options).findIndex(o => o.value === wanted);
	if (idx < 0) idx = el.options.length > 1 ? 1 : 0;
	el.selectedIndex = idx;
	el.dispatchEvent(new Event("change", {bubbles: true}));
})()`

	hoverScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) throw new Error("element not found");
	el.dispatchEvent(new MouseEvent("mouseover", {bubbles: true}));
	el.dispatchEvent(new MouseEvent("mouseenter", {bubbles: true}));
})()`
)
