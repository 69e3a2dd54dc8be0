// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/utils"
	"github.com/valpere/recipevault/pkg/types"
)

// ChromeFetcher renders pages in headless Chrome before handing their HTML to
// the extractor. One browser process is shared; each fetch opens its own tab.
type ChromeFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      *BrowserConfig
	tabs        chan struct{}
	logger      zerolog.Logger

	// startMu guards the browser context; it is taken before mu.
	startMu       sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	stats  BrowserStats
	closed bool
}

// NewChromeFetcher prepares a Chrome allocator. The browser process starts
// lazily on the first fetch and lives until Close.
func NewChromeFetcher(config *BrowserConfig) *ChromeFetcher {
	if config == nil {
		config = DefaultBrowserConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTabs <= 0 {
		config.MaxTabs = 1
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(config)...)

	return &ChromeFetcher{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		config:      config,
		tabs:        make(chan struct{}, config.MaxTabs),
		logger:      utils.NewComponentLogger("chrome-fetcher"),
	}
}

func allocatorOptions(config *BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ViewportWidth > 0 && config.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight))
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	return opts
}

// Fetch navigates a fresh tab to url and returns the rendered document.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := types.ValidateURL(url); err != nil {
		return "", apperrors.Fetch(err, "invalid target %q", url)
	}
	if f.isClosed() {
		return "", apperrors.Fetch(fmt.Errorf("browser is closed"), "fetch %s", url)
	}

	select {
	case f.tabs <- struct{}{}:
		defer func() { <-f.tabs }()
	case <-ctx.Done():
		return "", apperrors.Fetch(ctx.Err(), "waiting for a browser tab")
	}

	browserCtx, err := f.browser()
	if err != nil {
		f.record(0, err)
		return "", apperrors.Fetch(err, "start browser")
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.config.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now()
	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err == nil {
		err = checkResponse(resp, url)
	}
	var html string
	if err == nil {
		err = chromedp.Run(tabCtx, f.tasks(&html)...)
	}
	if err != nil {
		f.record(time.Since(start), err)
		f.logger.Debug().Err(err).Str("url", url).Msg("browser navigation failed")
		return "", apperrors.Fetch(err, "render %s", url)
	}
	f.record(time.Since(start), nil)

	f.logger.Debug().Str("url", url).Int("bytes", len(html)).Msg("page rendered")
	return html, nil
}

// browser starts the shared browser on first use. Tabs must derive from a
// started browser context, otherwise each would allocate its own process.
func (f *ChromeFetcher) browser() (context.Context, error) {
	f.startMu.Lock()
	defer f.startMu.Unlock()

	if f.isClosed() {
		return nil, fmt.Errorf("browser is closed")
	}
	if f.browserCtx != nil {
		if f.browserCtx.Err() == nil {
			return f.browserCtx, nil
		}
		// The browser went away; start a new one.
		f.browserCancel()
		f.browserCtx, f.browserCancel = nil, nil
	}

	ctx, cancel := chromedp.NewContext(f.allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, err
	}
	f.browserCtx, f.browserCancel = ctx, cancel

	f.mu.Lock()
	f.stats.BrowserStarts++
	f.mu.Unlock()
	f.logger.Debug().Msg("browser started")
	return ctx, nil
}

// checkResponse fails navigations whose document came back with an error
// status; Chrome renders those pages like any other.
func checkResponse(resp *network.Response, url string) error {
	if resp == nil || resp.Status < 400 {
		return nil
	}
	return &StatusError{StatusCode: int(resp.Status), Status: resp.StatusText, URL: url}
}

func (f *ChromeFetcher) tasks(html *string) []chromedp.Action {
	tasks := []chromedp.Action{
		chromedp.WaitReady("body"),
	}
	if f.config.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(f.config.WaitSelector))
	}
	if f.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(f.config.WaitDelay))
	}
	return append(tasks, chromedp.OuterHTML("html", html))
}

func (f *ChromeFetcher) record(loadTime time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.stats.Errors++
		return
	}
	f.stats.PagesLoaded++
	if f.stats.PagesLoaded == 1 {
		f.stats.AverageLoadTime = loadTime
	} else {
		f.stats.AverageLoadTime = (f.stats.AverageLoadTime + loadTime) / 2
	}
}

// Stats returns a snapshot of fetch statistics.
func (f *ChromeFetcher) Stats() BrowserStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *ChromeFetcher) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close shuts the browser down. It is safe to call more than once.
func (f *ChromeFetcher) Close() error {
	f.startMu.Lock()
	defer f.startMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if f.browserCancel != nil {
		f.browserCancel()
	}
	f.allocCancel()
	return nil
}

// StatusError is an error status on the navigated document.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode == 408 || e.StatusCode >= 500
}
