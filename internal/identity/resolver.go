// Package identity decides whether a freshly scraped record denotes a business
// that is already in the persisted lead set.
package identity

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
)

// Decision is the verdict for a single candidate.
type Decision string

const (
	Accepted       Decision = "accepted"
	MissingFields  Decision = "missing_fields"
	DuplicatePhone Decision = "duplicate_phone"
	DuplicateName  Decision = "duplicate_name"
)

// Tracker is the accumulator threaded through a single dedup pass. It holds
// the identity keys seen so far: the persisted set plus every candidate
// accepted earlier in the same batch.
type Tracker struct {
	phones map[string]struct{}
	names  map[string]struct{}
}

// NewTracker seeds a tracker with the keys of the persisted leads. Leads with
// an empty phone or name contribute nothing for that key.
func NewTracker(existing []model.Lead) *Tracker {
	t := &Tracker{
		phones: make(map[string]struct{}, len(existing)),
		names:  make(map[string]struct{}, len(existing)),
	}
	for _, l := range existing {
		if p := NormalizePhone(strings.TrimSpace(l.Phone)); p != "" {
			t.phones[p] = struct{}{}
		}
		if n := NormalizeName(l.Name); n != "" {
			t.names[n] = struct{}{}
		}
	}
	return t
}

// Admit checks a candidate against the tracked keys. An accepted candidate's
// keys are recorded immediately so later siblings collide with it.
func (t *Tracker) Admit(rec model.ScrapeRecord) (model.Lead, Decision) {
	title := strings.TrimSpace(rec.Title)
	phone := NormalizePhone(rec.Phone)
	if phone == "" || title == "" {
		return model.Lead{}, MissingFields
	}

	name := NormalizeName(title)

	if _, ok := t.names[name]; ok {
		return model.Lead{}, DuplicateName
	}
	if _, ok := t.phones[phone]; ok {
		return model.Lead{}, DuplicatePhone
	}

	t.phones[phone] = struct{}{}
	t.names[name] = struct{}{}

	return model.Lead{
		Name:    title,
		Phone:   phone,
		Address: rec.Address,
		Website: rec.Website,
	}, Accepted
}

// Stats counts decisions made during a Resolve pass.
type Stats map[Decision]int

// Resolve returns the candidates that are new, in input order, converted to
// leads with empty enrichment fields. The first occurrence of a key wins;
// either key colliding rejects the candidate. It never fails: malformed
// candidates are skipped.
func Resolve(candidates []model.ScrapeRecord, existing []model.Lead) ([]model.Lead, Stats) {
	t := NewTracker(existing)
	stats := Stats{}
	var accepted []model.Lead

	for _, rec := range candidates {
		lead, d := t.Admit(rec)
		stats[d]++
		switch d {
		case Accepted:
			accepted = append(accepted, lead)
		case DuplicateName:
			zap.L().Debug("identity: skipping duplicate name", zap.String("title", rec.Title))
		case DuplicatePhone:
			zap.L().Debug("identity: skipping duplicate phone", zap.String("phone", rec.Phone))
		}
	}

	zap.L().Info("identity: resolved scraped records",
		zap.Int("scraped", len(candidates)),
		zap.Int("new", len(accepted)),
	)
	return accepted, stats
}
