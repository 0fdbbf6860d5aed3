// Package linkcheck probes social profile links and rejects ones that land
// on a login wall, an error page, or the platform's homepage.
package linkcheck

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/lead-cli/internal/fetcher"
	"github.com/sells-group/lead-cli/internal/model"
)

// Platform identifies a social network.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
)

type platformRule struct {
	domain      string
	loginMarker string
}

var rules = map[Platform]platformRule{
	Instagram: {domain: "instagram.com", loginMarker: "accounts/login"},
	Facebook:  {domain: "facebook.com", loginMarker: "login"},
}

// Options configures a Verifier.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	Client            *http.Client
}

// Verifier checks profile links with a single HEAD request each.
type Verifier struct {
	client    *http.Client
	userAgent string
	limiters  *fetcher.HostLimiters
}

// NewVerifier creates a Verifier.
func NewVerifier(opts Options) *Verifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = fetcher.DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: opts.Timeout}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
			},
		}
	}
	return &Verifier{
		client:    client,
		userAgent: opts.UserAgent,
		limiters:  fetcher.NewHostLimiters(opts.RequestsPerSecond, 1),
	}
}

// VerifyInstagram reports whether rawURL resolves to a live Instagram profile.
func (v *Verifier) VerifyInstagram(ctx context.Context, rawURL string) bool {
	return v.Check(ctx, Instagram, rawURL).OK()
}

// VerifyFacebook reports whether rawURL resolves to a live Facebook page.
func (v *Verifier) VerifyFacebook(ctx context.Context, rawURL string) bool {
	return v.Check(ctx, Facebook, rawURL).OK()
}

// Check probes rawURL and classifies where it lands.
func (v *Verifier) Check(ctx context.Context, platform Platform, rawURL string) model.CheckResult {
	rule, ok := rules[platform]
	if !ok {
		return model.Invalid("unknown platform " + string(platform))
	}
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return model.Invalid("empty url")
	}
	target = fetcher.NormalizeURL(target)

	if err := v.limiters.Wait(ctx, target); err != nil {
		return model.Unavailable(err.Error())
	}

	status, final, err := v.probe(ctx, target)
	if err != nil {
		zap.L().Debug("linkcheck: probe failed",
			zap.String("platform", string(platform)),
			zap.String("url", target),
			zap.Error(err),
		)
		return model.Unavailable(err.Error())
	}
	return classify(rule, status, final)
}

func (v *Verifier) probe(ctx context.Context, target string) (int, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, nil, eris.Wrap(err, "linkcheck: create request")
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, nil, eris.Wrapf(err, "linkcheck: head %s", target)
	}
	_ = resp.Body.Close()

	return resp.StatusCode, resp.Request.URL, nil
}

// classify decides validity from the final status and URL after redirects.
func classify(rule platformRule, status int, final *url.URL) model.CheckResult {
	if status >= 400 {
		return model.Invalid("status " + http.StatusText(status))
	}
	finalURL := strings.ToLower(final.String())
	if strings.Contains(finalURL, rule.loginMarker) {
		return model.Invalid("redirected to login")
	}
	if isBareHomepage(rule.domain, final) {
		return model.Invalid("redirected to homepage")
	}
	return model.Valid()
}

func isBareHomepage(domain string, u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	if registrable != domain {
		return false
	}
	return u.Path == "" || u.Path == "/"
}
