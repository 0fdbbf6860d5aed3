// Package fetcher retrieves lead websites for contact extraction.
package fetcher

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second

	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes = 2 << 20

	// DefaultUserAgent is sent on every request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// PageOptions configures a PageFetcher.
type PageOptions struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Client            *http.Client
}

// PageFetcher downloads a single page per call with no retries.
type PageFetcher struct {
	client    *http.Client
	userAgent string
	limiters  *HostLimiters
}

// NewPageFetcher creates a PageFetcher with sensible defaults.
func NewPageFetcher(opts PageOptions) *PageFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &PageFetcher{
		client:    client,
		userAgent: opts.UserAgent,
		limiters:  NewHostLimiters(opts.RequestsPerSecond, 1),
	}
}

// NormalizeURL prepends https:// when rawURL carries no scheme.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return rawURL
	}
	return "https://" + strings.TrimPrefix(rawURL, "//")
}

// Fetch returns the body of rawURL decoded to UTF-8.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	target := NormalizeURL(rawURL)
	if target == "" {
		return "", eris.New("fetch: empty url")
	}

	lim := f.limiters.For(target)
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetch: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: %s", target)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return "", eris.Errorf("fetch: %s blocked (%s)", target, kind)
	}

	if resp.StatusCode == http.StatusTooManyRequests && lim != nil {
		lim.OnRateLimit()
	}
	if resp.StatusCode >= 400 {
		return "", eris.Errorf("fetch: %s status %d", target, resp.StatusCode)
	}
	if lim != nil {
		lim.OnSuccess()
	}

	text, err := decodeBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		zap.L().Debug("fetch: charset decode failed, using raw bytes",
			zap.String("url", target),
			zap.Error(err),
		)
		return string(body), nil
	}
	return text, nil
}

// decodeBody converts body to UTF-8 using the charset declared in
// contentType. Bodies without a declared charset are returned as-is.
func decodeBody(contentType string, body []byte) (string, error) {
	if contentType == "" {
		return string(body), nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	name := strings.ToLower(strings.TrimSpace(params["charset"]))
	if name == "" || name == "utf-8" || name == "utf8" {
		return string(body), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: unsupported charset %q", name)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: decode %s", name)
	}
	return string(out), nil
}
