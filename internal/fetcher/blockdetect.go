package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" {
			return true, BlockCloudflare
		}
		if strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return true, BlockCloudflare
	}

	// A page that merely embeds a contact-form captcha is still useful, so
	// only short interstitials count.
	if len(body) < 4096 && (strings.Contains(lower, "captcha") || strings.Contains(lower, "are you a robot")) {
		return true, BlockCaptcha
	}

	return false, BlockNone
}
