package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-job-feed-watcher/internal/browser"

	"github.com/playwright-community/playwright-go"
)

const (
	DefaultFeedURL = "https://www.linkedin.com/voyager/api/feed/updates"
	DefaultCount   = 50
)

// ErrMalformedResponse means the feed answered but the body was not the expected JSON.
var ErrMalformedResponse = errors.New("malformed feed response")

// Fetcher retrieves one page of raw feed records.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Item, error)
}

type FetchOptions struct {
	URL   string
	Count int
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.URL == "" {
		o.URL = DefaultFeedURL
	}
	if o.Count <= 0 {
		o.Count = DefaultCount
	}
	return o
}

func (o FetchOptions) requestURL() (string, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("q", "chronFeed")
	q.Set("start", "0")
	q.Set("count", strconv.Itoa(o.Count))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func requestHeaders(csrfToken string) map[string]string {
	return map[string]string{
		"User-Agent":                browser.UserAgent,
		"Csrf-Token":                csrfToken,
		"Accept":                    "application/vnd.linkedin.normalized+json+2.1",
		"X-RestLi-Protocol-Version": "2.0.0",
	}
}

type voyagerResponse struct {
	Included []json.RawMessage `json:"included"`
}

// ParseResponse decodes a feed response body into typed items.
func ParseResponse(body []byte) ([]Item, error) {
	var resp voyagerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return DecodeItems(resp.Included), nil
}

// HTTPFetcher calls the feed API directly with a session cookie bundle.
type HTTPFetcher struct {
	httpClient *http.Client
	cookies    []browser.Cookie
	opts       FetchOptions
}

func NewHTTPFetcher(cookies []browser.Cookie, opts FetchOptions) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cookies:    cookies,
		opts:       opts.withDefaults(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Item, error) {
	body, err := f.FetchBody(ctx)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

// FetchBody returns the raw response body of one feed request.
func (f *HTTPFetcher) FetchBody(ctx context.Context) ([]byte, error) {
	reqURL, err := f.opts.requestURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	for k, v := range requestHeaders(browser.CSRFToken(f.cookies)) {
		req.Header.Set(k, v)
	}
	for _, c := range f.cookies {
		req.AddCookie(c.ToHTTP())
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return body, nil
}

// BrowserFetcher issues the same request from inside a real browser context.
type BrowserFetcher struct {
	manager *browser.Manager
	cookies []browser.Cookie
	opts    FetchOptions
}

func NewBrowserFetcher(manager *browser.Manager, cookies []browser.Cookie, opts FetchOptions) *BrowserFetcher {
	return &BrowserFetcher{
		manager: manager,
		cookies: cookies,
		opts:    opts.withDefaults(),
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context) ([]Item, error) {
	reqURL, err := f.opts.requestURL()
	if err != nil {
		return nil, err
	}

	bctx, err := f.manager.NewContext(f.cookies)
	if err != nil {
		return nil, err
	}
	defer bctx.Close()

	if err := browser.RandomDelay(ctx, 500, 1500); err != nil {
		return nil, err
	}

	resp, err := bctx.Request().Get(reqURL, playwright.APIRequestContextGetOptions{
		Headers: requestHeaders(browser.CSRFToken(f.cookies)),
		Timeout: playwright.Float(30000),
	})
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Dispose()

	if !resp.Ok() {
		return nil, fmt.Errorf("feed returned status %d", resp.Status())
	}

	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}
	return ParseResponse(body)
}
