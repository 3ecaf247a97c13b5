// Package fetch retrieves rendered catalog pages with politeness throttling,
// bounded retries, and failure classification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrSessionInit marks a render session that could not be launched. The
// scheduler treats it as fatal to the whole run rather than a per-code
// failure.
var ErrSessionInit = errors.New("render session init failed")

// Page is the rendered content of one detail page.
type Page struct {
	URL        string
	StatusCode int
	HTML       string
	Rendered   bool
}

// Fetcher retrieves one page. Implemented by Engine and Cache.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Config captures the engine knobs.
type Config struct {
	UserAgent       string
	MinInterval     time.Duration
	MaxAttempts     int
	BaseBackoff     time.Duration
	RenderTimeout   time.Duration
	MarkerTimeout   time.Duration
	MarkerSelector  string
	NotFoundMarkers []string
	HostQPS         float64
	ProbeEnabled    bool
	ProbeMinBytes   int
}

// Engine manages one long-lived headless browser session, lazily started on
// first use and closed exactly once. All callers share one politeness gate.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	gate     *gate
	probe    *collyProbe
	detector *renderDetector
	limiters sync.Map

	startOnce     sync.Once
	startErr      error
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once

	// transport is the single-attempt fetch path; swapped out in tests.
	transport func(ctx context.Context, rawURL string) (Page, error)
}

// NewEngine builds an Engine. The browser session is not launched until the
// first fetch needs it.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.MarkerTimeout <= 0 {
		cfg.MarkerTimeout = 5 * time.Second
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger,
		gate:   newGate(cfg.MinInterval),
	}
	if cfg.ProbeEnabled {
		e.probe = newCollyProbe(cfg.UserAgent, cfg.RenderTimeout)
		e.detector = newRenderDetector(cfg.ProbeMinBytes, cfg.MarkerSelector)
	}
	e.transport = e.fetchOnce
	return e
}

// Fetch runs one attempt cycle: up to MaxAttempts tries with linear backoff
// between them. On exhaustion it returns a single aggregated *FetchError
// carrying the last classification; the caller must not retry further.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (Page, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		fetchAttempts.Inc()
		page, err := e.transport(ctx, rawURL)
		if err == nil {
			fetchSuccesses.Inc()
			return page, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionInit) || ctx.Err() != nil {
			break
		}
		if attempt < e.cfg.MaxAttempts {
			backoff := time.Duration(attempt) * e.cfg.BaseBackoff
			e.logger.Warn("fetch attempt failed, backing off",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if perr := pause(ctx, backoff); perr != nil {
				break
			}
		}
	}
	class := Classify(lastErr)
	fetchFailures.WithLabelValues(string(class)).Inc()
	return Page{}, &FetchError{URL: rawURL, Class: class, Attempts: attempts, Last: lastErr}
}

// Close tears down the browser session. Safe to call more than once, and a
// no-op when no fetch ever launched the session.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		if e.browserCancel != nil {
			e.browserCancel()
		}
		if e.allocCancel != nil {
			e.allocCancel()
		}
	})
	return ctx.Err()
}

func (e *Engine) fetchOnce(ctx context.Context, rawURL string) (Page, error) {
	var page Page
	err := e.gate.run(ctx, func() error {
		if err := e.waitHostBudget(ctx, rawURL); err != nil {
			return err
		}
		fetched, err := e.probeOrRender(ctx, rawURL)
		if err != nil {
			return err
		}
		page = fetched
		return nil
	})
	return page, err
}

func (e *Engine) probeOrRender(ctx context.Context, rawURL string) (Page, error) {
	if e.probe != nil {
		page, err := e.probe.fetch(ctx, rawURL)
		switch {
		case err == nil && e.detector.complete([]byte(page.HTML)):
			return e.checkNotFound(page)
		case err != nil && errors.Is(err, ErrNotFound):
			return Page{}, fmt.Errorf("probe %s: %w", rawURL, err)
		case err != nil:
			e.logger.Debug("probe failed, rendering", zap.String("url", rawURL), zap.Error(err))
		default:
			renderPromotions.Inc()
			e.logger.Debug("probe incomplete, rendering", zap.String("url", rawURL))
		}
	}
	return e.render(ctx, rawURL)
}

// ensureSession launches the shared browser exactly once. Concurrent
// callers block on the launch instead of racing to start duplicates.
func (e *Engine) ensureSession() error {
	e.startOnce.Do(func() {
		opts := chromedp.DefaultExecAllocatorOptions[:]
		opts = append(opts,
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.UserAgent(e.cfg.UserAgent),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			e.startErr = fmt.Errorf("%w: %v", ErrSessionInit, err)
			return
		}
		e.allocCancel = allocCancel
		e.browserCtx = browserCtx
		e.browserCancel = browserCancel
		e.logger.Info("render session started")
	})
	return e.startErr
}

func (e *Engine) render(ctx context.Context, rawURL string) (Page, error) {
	if err := e.ensureSession(); err != nil {
		return Page{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, e.cfg.RenderTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	meta.listen(tabCtx)

	if err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return Page{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	// The structural marker signals a finished render, but its absence is
	// not a failure: after the bounded wait the snapshot is taken anyway.
	if e.cfg.MarkerSelector != "" {
		markerCtx, cancelMarker := context.WithTimeout(taskCtx, e.cfg.MarkerTimeout)
		if err := chromedp.Run(markerCtx, chromedp.WaitReady(e.cfg.MarkerSelector, chromedp.ByQuery)); err != nil {
			e.logger.Debug("structural marker not observed", zap.String("url", rawURL))
		}
		cancelMarker()
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return Page{}, fmt.Errorf("capture %s: %w", rawURL, err)
	}

	return e.checkNotFound(Page{
		URL:        rawURL,
		StatusCode: meta.status(),
		HTML:       html,
		Rendered:   true,
	})
}

// checkNotFound converts a successful retrieval of a non-existent resource
// into the terminal not-found error.
func (e *Engine) checkNotFound(page Page) (Page, error) {
	if page.StatusCode == http.StatusNotFound {
		return Page{}, fmt.Errorf("page %s: status 404: %w", page.URL, ErrNotFound)
	}
	lower := strings.ToLower(page.HTML)
	for _, marker := range e.cfg.NotFoundMarkers {
		if marker == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(marker)) {
			return Page{}, fmt.Errorf("page %s: %w", page.URL, ErrNotFound)
		}
	}
	return page, nil
}

func (e *Engine) waitHostBudget(ctx context.Context, rawURL string) error {
	if e.cfg.HostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse fetch url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := e.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(e.cfg.HostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

type responseMeta struct {
	mu         sync.Mutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

func (m *responseMeta) listen(tabCtx context.Context) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		m.mu.Lock()
		if m.statusCode == 0 {
			m.statusCode = int(resp.Response.Status)
		}
		m.mu.Unlock()
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
