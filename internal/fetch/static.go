package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/shanehull/annwatch/internal/errs"
)

// maxBodyBytes bounds how much of a listing page is read.
const maxBodyBytes = 8 << 20

// StaticFetcher issues a plain GET with browser-like headers.
type StaticFetcher struct {
	client    *http.Client
	userAgent string
}

func NewStaticFetcher(userAgent string, timeout time.Duration) *StaticFetcher {
	return &StaticFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *StaticFetcher) Name() string { return "static" }

func (f *StaticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("invalid source URL %q", url), err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("DNT", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.Network("fetch", fmt.Sprintf("GET %s failed", url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Network("fetch", "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("fetch", resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	return toUTF8(body, resp.Header.Get("Content-Type"))
}

// toUTF8 converts body using the charset from contentType or the document itself.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, enc.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, errs.Parsing("fetch", fmt.Sprintf("failed to decode %s body", name), err)
	}
	return buf.Bytes(), nil
}
