package contact

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/lead-cli/internal/emailcheck"
	"github.com/sells-group/lead-cli/internal/model"
)

// ExtractDocument is Extract plus a mailto fallback: when the raw text holds
// no address, the first mailto link with a well-formed address is used. This
// catches entity-encoded addresses the text search cannot see.
func ExtractDocument(content string) model.ContactBundle {
	b := Extract(content)
	if b.Email != "" {
		return b
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return b
	}

	doc.Find(`a[href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return true
		}
		addr := mailtoAddress(href[len("mailto:"):])
		if emailcheck.ValidateFormat(addr) {
			b.Email = addr
			return false
		}
		return true
	})

	return b
}

// mailtoAddress drops the query part and percent-encoding of a mailto target.
func mailtoAddress(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if i := strings.IndexByte(target, ','); i >= 0 {
		target = target[:i]
	}
	if dec, err := url.PathUnescape(target); err == nil {
		target = dec
	}
	return strings.TrimSpace(target)
}
