package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shanehull/annwatch/internal/errs"
)

// FlareSolverrFetcher asks a FlareSolverr instance to load the page, for when the
// source sits behind a Cloudflare challenge.
type FlareSolverrFetcher struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewFlareSolverrFetcher(endpoint string, timeout time.Duration) *FlareSolverrFetcher {
	return &FlareSolverrFetcher{
		endpoint: endpoint,
		timeout:  timeout,
		// FlareSolverr needs headroom beyond its own maxTimeout to answer.
		client: &http.Client{Timeout: timeout + 10*time.Second},
	}
}

func (f *FlareSolverrFetcher) Name() string { return "flaresolverr" }

type flareRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int64  `json:"maxTimeout"`
}

type flareResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		URL      string `json:"url"`
		Status   int    `json:"status"`
		Response string `json:"response"`
	} `json:"solution"`
}

func (f *FlareSolverrFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	payload, err := json.Marshal(flareRequest{
		Cmd:        "request.get",
		URL:        url,
		MaxTimeout: f.timeout.Milliseconds(),
	})
	if err != nil {
		return nil, errs.Network("flaresolverr", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("invalid FlareSolverr endpoint %q", f.endpoint), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.Network("flaresolverr", "FlareSolverr not reachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Network("flaresolverr", "failed to read response body", err)
	}

	var out flareResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.Network("flaresolverr", fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode), err)
	}

	if out.Status != "ok" {
		return nil, errs.Network("flaresolverr", "FlareSolverr error: "+out.Message, nil)
	}

	page := []byte(out.Solution.Response)
	if out.Solution.Status != 0 && out.Solution.Status != http.StatusOK {
		return nil, statusError("flaresolverr", out.Solution.Status, page, "")
	}
	if len(page) == 0 {
		return nil, errs.Network("flaresolverr", "no content in FlareSolverr response", nil)
	}

	// FlareSolverr returns the DOM already decoded, so no charset sniffing here.
	return page, nil
}
