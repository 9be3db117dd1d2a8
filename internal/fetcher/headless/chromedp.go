// Package headless fetches retailer pages with a remote-controlled browser.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// The series page lazy-loads most of its children behind a "show all"
// control. Expansion runs in-page and in two steps, scroll first and click
// after a settle period, because the link is not reliably interactive right
// after scrolling while the page is still loading children. Both scripts
// bail out when the control is absent: short series render without it.
const showAllScrollScript = `(() => {
	const section = document.getElementById('seriesAsinListShowAll_textSection');
	if (!section) { return false; }
	const link = section.querySelector('a');
	if (!link) { return false; }
	link.scrollIntoView();
	return true;
})()`

const showAllClickScript = `(() => {
	const section = document.getElementById('seriesAsinListShowAll_textSection');
	if (!section) { return false; }
	const link = section.querySelector('a');
	if (!link) { return false; }
	link.click();
	return true;
})()`

// Config controls the behavior of the headless fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay is how long to wait after navigation (and again after the
	// show-all click) for dynamically loaded content to arrive.
	SettleDelay time.Duration
}

// Fetcher implements tracker.Fetcher using chromedp and headless Chrome.
// Every Fetch runs in a fresh browser context that is torn down on all exit
// paths, success or failure.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless fetcher backed by chromedp.
func New(cfg Config) *Fetcher {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 90 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context and with it the browser process.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates to the requested page, waits for remote content to settle,
// optionally expands the series list, and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, request tracker.FetchRequest) (tracker.FetchResponse, error) {
	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	// Honor caller cancellation without keeping the tab alive past it.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.userAgentAction(),
		chromedp.Navigate(request.URL),
		chromedp.Sleep(f.cfg.SettleDelay),
	}
	if request.ExpandShowAll {
		actions = append(actions, f.expandShowAllAction())
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return tracker.FetchResponse{}, fmt.Errorf("chromedp run: %w", err)
	}

	if finalURL == "" {
		finalURL = request.URL
	}
	return tracker.FetchResponse{
		URL:      finalURL,
		HTML:     html,
		Duration: time.Since(start),
	}, nil
}

func (f *Fetcher) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (f *Fetcher) expandShowAllAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var found bool
		if err := chromedp.Evaluate(showAllScrollScript, &found).Do(ctx); err != nil {
			return fmt.Errorf("scroll to show-all: %w", err)
		}
		if !found {
			return nil
		}
		if err := chromedp.Sleep(f.cfg.SettleDelay).Do(ctx); err != nil {
			return err
		}
		var clicked bool
		if err := chromedp.Evaluate(showAllClickScript, &clicked).Do(ctx); err != nil {
			return fmt.Errorf("expand show-all: %w", err)
		}
		if !clicked {
			return nil
		}
		return chromedp.Sleep(f.cfg.SettleDelay).Do(ctx)
	})
}
