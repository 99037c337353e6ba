package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/shanehull/annwatch/internal/errs"
)

// BrowserFetcher renders the page in headless Chromium. It is the slowest
// strategy and needs the playwright driver and browsers installed.
type BrowserFetcher struct {
	userAgent string
	timeout   time.Duration
	headless  bool
}

func NewBrowserFetcher(userAgent string, timeout time.Duration, headless bool) *BrowserFetcher {
	return &BrowserFetcher{userAgent: userAgent, timeout: timeout, headless: headless}
}

func (f *BrowserFetcher) Name() string { return "browser" }

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Network("browser", "cancelled before launch", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Configuration("could not start playwright; run `go run github.com/playwright-community/playwright-go/cmd/playwright install chromium`", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(f.headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return nil, errs.Configuration("could not launch chromium", err)
	}
	defer browser.Close()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(f.userAgent),
		Locale:    playwright.String("tr-TR"),
	})
	if err != nil {
		return nil, errs.Network("browser", "could not open page", err)
	}

	// playwright has no context support; close the page if ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = page.Close() })
	defer stop()

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(f.timeout.Milliseconds())),
	})
	if err != nil {
		return nil, errs.Network("browser", fmt.Sprintf("navigation to %s failed", url), err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, errs.Network("browser", "could not read page content", err)
	}

	if resp != nil && !resp.Ok() {
		return nil, statusError("browser", resp.Status(), []byte(content), "")
	}

	return []byte(content), nil
}
