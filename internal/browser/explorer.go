// internal/browser/explorer.go

// Package browser drives a real Chrome tab through chromedp and adapts it to
// the engine's Explorer contract: structured observations in, discrete
// actions out. In-page failures are reported as outcomes, never as errors;
// the error channel is reserved for infrastructure breakage.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/config"
	"github.com/xkilldash9x/meander-cli/internal/journey"
)

const (
	// extractTimeout bounds a single page-state evaluation.
	extractTimeout = 30 * time.Second
	// navTimeoutFallback is used when the config carries no navigation timeout.
	navTimeoutFallback = 45 * time.Second
	// dialogAttentionSec is the simulated attention cost of a browser dialog
	// popping up mid-step.
	dialogAttentionSec = 4.0
)

// Explorer owns one browser tab for the duration of one journey. It is not
// safe for concurrent use: the engine drives Observe and Act sequentially,
// and that contract is assumed here.
type Explorer struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	limiter *rate.Limiter

	// goalFragment, when set, marks observations of URLs containing it as
	// positive goal confirmation.
	goalFragment string

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	// lastFP is the fingerprint of the most recent observation, used to
	// judge whether an action changed the page.
	lastFP string

	mu      sync.Mutex
	pending *schemas.InterruptSignal
}

var _ journey.Explorer = (*Explorer)(nil)

// New creates an explorer. The browser process is not launched until Start.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.ActionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1)
	}
	return &Explorer{
		logger:  logger.Named("browser"),
		cfg:     cfg,
		limiter: limiter,
	}
}

// MarkGoalURL registers a URL fragment that positively confirms the goal.
// Observations of pages whose URL contains the fragment carry a goal signal.
func (e *Explorer) MarkGoalURL(fragment string) {
	e.goalFragment = strings.TrimSpace(fragment)
}

// Start launches Chrome, opens a tab, and navigates to the journey's start
// URL. The ctx given here is the lifetime parent: when it dies, the browser
// dies with it.
func (e *Explorer) Start(ctx context.Context, startURL string) error {
	if e.tabCtx != nil {
		return fmt.Errorf("browser: explorer already started")
	}
	if startURL == "" {
		return fmt.Errorf("browser: start URL must not be empty")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(e.cfg)...)

	var ctxOpts []chromedp.ContextOption
	if e.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(e.logger.Sugar().Debugf))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	e.tabCtx = tabCtx
	e.tabCancel = cancelTab
	e.allocCancel = cancelAlloc

	e.listenForDialogs()

	tasks := chromedp.Tasks{}
	if e.cfg.ViewportWidth > 0 && e.cfg.ViewportHeight > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(e.cfg.ViewportWidth), int64(e.cfg.ViewportHeight)))
	}
	tasks = append(tasks, chromedp.Navigate(startURL))

	navCtx, cancel := context.WithTimeout(tabCtx, e.navigationTimeout())
	defer cancel()
	if err := chromedp.Run(navCtx, tasks); err != nil {
		e.Close()
		return fmt.Errorf("browser: opening %s: %w", startURL, err)
	}
	if err := e.settle(ctx); err != nil {
		e.Close()
		return err
	}

	e.logger.Info("browser session started",
		zap.String("url", startURL),
		zap.Bool("headless", e.cfg.Headless),
	)
	return nil
}

// Close tears down the tab and the browser process. Safe to call more than
// once.
func (e *Explorer) Close() {
	if e.tabCancel != nil {
		e.tabCancel()
		e.tabCancel = nil
	}
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCancel = nil
	}
	if e.tabCtx != nil {
		e.tabCtx = nil
		e.logger.Info("browser session closed")
	}
}

// Observe snapshots the current page into a structured observation.
func (e *Explorer) Observe(ctx context.Context) (schemas.Observation, error) {
	if e.tabCtx == nil {
		return schemas.Observation{}, fmt.Errorf("browser: explorer not started")
	}

	opCtx, cancel := e.opContext(ctx, extractTimeout)
	defer cancel()

	var dto pageDTO
	if err := chromedp.Run(opCtx, chromedp.Evaluate(extractScript, &dto)); err != nil {
		return schemas.Observation{}, fmt.Errorf("browser: extracting page state: %w", err)
	}

	obs := toObservation(dto)
	if e.goalFragment != "" && matchesGoal(obs.URL, e.goalFragment) {
		obs.GoalSignal = true
	}
	obs.Interrupt = e.takePendingInterrupt()
	e.lastFP = obs.Fingerprint

	e.logger.Debug("page observed",
		zap.String("url", obs.URL),
		zap.String("fingerprint", obs.Fingerprint),
		zap.Int("candidates", len(obs.Candidates)),
		zap.Int("content_blocks", len(obs.Content)),
	)
	return obs, nil
}

// Act dispatches one interaction against the live page. Failures the page
// itself produces (missing nodes, dead navigations, timeouts) come back as
// failed outcomes with a nil error.
func (e *Explorer) Act(ctx context.Context, req schemas.ActionRequest) (schemas.ActionOutcome, error) {
	if e.tabCtx == nil {
		return schemas.ActionOutcome{}, fmt.Errorf("browser: explorer not started")
	}
	if req.Kind == schemas.ActionNone {
		return schemas.ActionOutcome{Success: true}, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return schemas.ActionOutcome{}, err
	}

	action, err := buildAction(req)
	if err != nil {
		e.logger.Warn("unbuildable action request", zap.Error(err))
		return schemas.ActionOutcome{Success: false, Error: schemas.ActionErrBlocked}, nil
	}

	opCtx, cancel := e.opContext(ctx, e.navigationTimeout())
	defer cancel()

	start := time.Now()
	if runErr := chromedp.Run(opCtx, action); runErr != nil {
		kind := classifyActErr(runErr)
		e.logger.Debug("action failed in page",
			zap.String("action", string(req.Kind)),
			zap.String("ref", req.Ref),
			zap.String("error_kind", string(kind)),
			zap.Error(runErr),
		)
		return schemas.ActionOutcome{
			Success:   false,
			Error:     kind,
			LatencyMS: time.Since(start).Milliseconds(),
		}, nil
	}

	// Give the page a beat to load or re-render before judging what changed.
	if err := e.settle(opCtx); err != nil && ctx.Err() != nil {
		return schemas.ActionOutcome{}, ctx.Err()
	}

	out := schemas.ActionOutcome{
		Success:     true,
		PageChanged: e.pageChanged(opCtx),
		LatencyMS:   time.Since(start).Milliseconds(),
	}
	e.logger.Debug("action dispatched",
		zap.String("action", string(req.Kind)),
		zap.String("ref", req.Ref),
		zap.Bool("page_changed", out.PageChanged),
		zap.Int64("latency_ms", out.LatencyMS),
	)
	return out, nil
}

// listenForDialogs watches for JavaScript dialogs, records them as modal
// interrupts for the next observation, and dismisses them so the tab never
// wedges on an alert().
func (e *Explorer) listenForDialogs() {
	chromedp.ListenTarget(e.tabCtx, func(ev interface{}) {
		d, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		e.mu.Lock()
		e.pending = &schemas.InterruptSignal{Kind: schemas.InterruptModal, SimSeconds: dialogAttentionSec}
		e.mu.Unlock()

		e.logger.Debug("dismissing javascript dialog",
			zap.String("type", string(d.Type)),
			zap.String("message", d.Message),
		)
		go func() {
			if err := chromedp.Run(e.tabCtx, page.HandleJavaScriptDialog(true)); err != nil && e.tabCtx.Err() == nil {
				e.logger.Warn("failed to dismiss dialog", zap.Error(err))
			}
		}()
	})
}

func (e *Explorer) takePendingInterrupt() *schemas.InterruptSignal {
	e.mu.Lock()
	defer e.mu.Unlock()
	sig := e.pending
	e.pending = nil
	return sig
}

// pageChanged re-hashes the page skeleton and compares it against the last
// observation. A failed probe almost always means a navigation destroyed the
// evaluation context, which is itself a page change.
func (e *Explorer) pageChanged(ctx context.Context) bool {
	var dto probeDTO
	if err := chromedp.Run(ctx, chromedp.Evaluate(probeScript, &dto)); err != nil {
		return true
	}
	return probeFingerprint(dto) != e.lastFP
}

// settle waits the configured post-load quiet period.
func (e *Explorer) settle(ctx context.Context) error {
	if e.cfg.PostLoadWait <= 0 {
		return nil
	}
	t := time.NewTimer(e.cfg.PostLoadWait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Explorer) navigationTimeout() time.Duration {
	if e.cfg.NavigationTimeout > 0 {
		return e.cfg.NavigationTimeout
	}
	return navTimeoutFallback
}

// opContext derives a context that carries the tab's CDP target but also
// honors the caller's cancellation and the operation timeout.
func (e *Explorer) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := combineContext(e.tabCtx, ctx)
	opCtx, cancelOp := context.WithTimeout(combined, timeout)
	return opCtx, func() {
		cancelOp()
		cancelCombined()
	}
}

// combineContext derives from primary (keeping its values, which is what CDP
// target resolution needs) and additionally cancels when secondary is done.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// buildAction maps an engine action request onto a chromedp action sequence.
func buildAction(req schemas.ActionRequest) (chromedp.Action, error) {
	switch req.Kind {
	case schemas.ActionClick:
		if req.Ref == "" {
			return nil, fmt.Errorf("browser: click needs a target ref")
		}
		sel := selectorFor(req.Ref)
		return chromedp.Tasks{
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery),
		}, nil
	case schemas.ActionType:
		if req.Ref == "" {
			return nil, fmt.Errorf("browser: type needs a target ref")
		}
		sel := selectorFor(req.Ref)
		return chromedp.Tasks{
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.WaitVisible(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, req.Text, chromedp.ByQuery),
		}, nil
	case schemas.ActionScroll:
		return chromedp.Evaluate(`window.scrollBy({top: window.innerHeight * 0.8, left: 0, behavior: 'auto'});`, nil), nil
	case schemas.ActionBack:
		return chromedp.NavigateBack(), nil
	case schemas.ActionNavigate:
		if req.Text == "" {
			return nil, fmt.Errorf("browser: navigate needs a URL in the text field")
		}
		return chromedp.Navigate(req.Text), nil
	default:
		return nil, fmt.Errorf("browser: unsupported action kind %q", req.Kind)
	}
}

// selectorFor addresses a candidate by the ref attribute stamped during
// extraction. Refs are script-generated, but quotes are stripped anyway so a
// hostile value cannot break out of the selector.
func selectorFor(ref string) string {
	clean := strings.NewReplacer(`"`, "", `\`, "").Replace(ref)
	return fmt.Sprintf(`[%s=%q]`, refAttribute, clean)
}

// matchesGoal reports whether the URL contains the goal fragment,
// case-insensitively.
func matchesGoal(url, fragment string) bool {
	return strings.Contains(strings.ToLower(url), strings.ToLower(fragment))
}

// classifyActErr folds a chromedp error into the engine's failure taxonomy.
func classifyActErr(err error) schemas.ActionErrorKind {
	if err == nil {
		return schemas.ActionErrNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return schemas.ActionErrTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "net::err"), strings.Contains(msg, "page load error"):
		return schemas.ActionErrNavigation
	case strings.Contains(msg, "could not find node"),
		strings.Contains(msg, "no nodes found"),
		strings.Contains(msg, "node not found"),
		strings.Contains(msg, "detached"):
		return schemas.ActionErrDetached
	default:
		return schemas.ActionErrBlocked
	}
}

// allocatorOptions builds the Chrome launch flags from the browser config,
// on top of chromedp's defaults.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	for _, arg := range cfg.Args {
		name, value := splitChromeArg(arg)
		if name == "" {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// splitChromeArg parses a raw command-line style argument ("--lang=en-US",
// "--disable-web-security") into a chromedp flag name and value.
func splitChromeArg(arg string) (string, interface{}) {
	name := strings.TrimLeft(strings.TrimSpace(arg), "-")
	if name == "" {
		return "", nil
	}
	if k, v, ok := strings.Cut(name, "="); ok {
		return k, v
	}
	return name, true
}
