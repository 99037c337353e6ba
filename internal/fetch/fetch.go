/*
Package fetch retrieves the raw listing page. Several strategies exist because
the source site changes how it defends against scrapers; all of them satisfy
Fetcher and are picked by configuration.
*/
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shanehull/annwatch/internal/config"
	"github.com/shanehull/annwatch/internal/errs"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

// Fetcher returns the body of url decoded to UTF-8.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Name() string
}

// HTTPError is a non-success response. Body is kept so it can be saved for diagnosis.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
}

func isRateLimitStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == 430
}

// statusError classifies a failed response.
func statusError(op string, code int, body []byte, retryAfter string) error {
	if isRateLimitStatus(code) {
		msg := fmt.Sprintf("rate limited with status %d", code)
		if retryAfter != "" {
			msg += "; retry after " + retryAfter
		}
		return errs.New(errs.KindRateLimit, op, msg, &HTTPError{StatusCode: code, Body: body})
	}
	return errs.Network(op, "request failed", &HTTPError{StatusCode: code, Body: body})
}

// New builds the configured fetcher, wrapped with retries. blocker may be nil.
func New(cfg config.FetchConfig, blocker Blocker, blockTime time.Duration) (Fetcher, error) {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	var f Fetcher
	switch cfg.Strategy {
	case "", "static":
		f = NewStaticFetcher(ua, cfg.Timeout)
	case "flaresolverr":
		f = NewFlareSolverrFetcher(cfg.FlareSolverrURL, cfg.Timeout)
	case "browser":
		f = NewBrowserFetcher(ua, cfg.Timeout, cfg.BrowserHeadless)
	default:
		return nil, errs.Configuration(fmt.Sprintf("unknown fetch strategy %q", cfg.Strategy), nil)
	}

	f = NewRetrying(f, cfg.Retries, cfg.RetryDelay, cfg.Timeout)

	if blocker != nil {
		f = NewGuarded(f, blocker, blockTime)
	}
	return f, nil
}
