// Package contact pulls contact signals (email and social profiles) out of a
// business website's page content.
package contact

import (
	"regexp"

	"github.com/sells-group/lead-cli/internal/model"
)

var (
	emailRe     = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	instagramRe = regexp.MustCompile(`(?:https?://)?(?:www\.)?instagram\.com/([a-zA-Z0-9._]+)`)
	facebookRe  = regexp.MustCompile(`(?:https?://)?(?:www\.)?facebook\.com/([a-zA-Z0-9._]+)`)
	linkedinRe  = regexp.MustCompile(`(?:https?://)?(?:www\.)?linkedin\.com/(company|in)/([a-zA-Z0-9._-]+)`)
)

// Extract runs four independent searches over raw page content and keeps the
// first match of each. Social matches are rewritten to a canonical
// https://<platform>.com/... form whatever scheme or www prefix the page used.
// Fields without a match are left empty.
func Extract(content string) model.ContactBundle {
	var b model.ContactBundle

	if m := emailRe.FindString(content); m != "" {
		b.Email = m
	}
	if m := instagramRe.FindStringSubmatch(content); m != nil {
		b.Instagram = "https://instagram.com/" + m[1]
	}
	if m := facebookRe.FindStringSubmatch(content); m != nil {
		b.Facebook = "https://facebook.com/" + m[1]
	}
	if m := linkedinRe.FindStringSubmatch(content); m != nil {
		b.LinkedIn = "https://linkedin.com/" + m[1] + "/" + m[2]
	}

	return b
}
