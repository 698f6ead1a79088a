// Package browser drives a headless, fingerprint-resistant Chromium
// session for retailers that render prices client-side.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"
)

type Browser struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	sessions *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	MaxSessions    int64
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		MaxSessions:    2,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
			"--user-agent=" + opts.UserAgent,
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": opts.AcceptLanguage,
			"DNT":             "1",
		},
	}

	browserCtx, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:       pw,
		browser:  b,
		context:  browserCtx,
		sessions: semaphore.NewWeighted(opts.MaxSessions),
		timeout:  opts.Timeout,
		logger:   slog.Default().With("component", "browser"),
	}, nil
}

// AcquirePage blocks until a session slot is free and opens a fresh page.
// The returned release func closes the page and frees the slot; callers
// must invoke it on every exit path.
func (b *Browser) AcquirePage(ctx context.Context) (playwright.Page, func(), error) {
	if err := b.sessions.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("failed to acquire session slot: %w", err)
	}

	page, err := b.context.NewPage()
	if err != nil {
		b.sessions.Release(1)
		return nil, nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))

	release := func() {
		if err := page.Close(); err != nil {
			b.logger.Warn("failed to close page", "error", err)
		}
		b.sessions.Release(1)
	}
	return page, release, nil
}

// Navigate loads the URL within the page-load budget. A load timeout is
// tolerated: whatever DOM state exists by then is used as-is.
func (b *Browser) Navigate(page playwright.Page, url string) error {
	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
	})
	if err != nil {
		if strings.Contains(err.Error(), "Timeout") {
			b.logger.Warn("page load timed out, continuing with partial DOM", "url", url)
			return nil
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
