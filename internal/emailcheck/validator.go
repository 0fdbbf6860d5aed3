// Package emailcheck validates email addresses by format and, optionally,
// by confirming the domain publishes MX records.
package emailcheck

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
)

var formatRe = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// ErrNoRecords is returned by an MXResolver when the domain does not exist
// or has no MX answer.
var ErrNoRecords = errors.New("emailcheck: no mx records")

// MXResolver looks up the mail exchangers of a domain.
type MXResolver interface {
	LookupMX(ctx context.Context, domain string) ([]string, error)
}

// ValidateFormat reports whether email is a syntactically acceptable address.
func ValidateFormat(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return formatRe.MatchString(email)
}

// Validator checks addresses, caching domain lookups for the lifetime of the
// value. It is safe for concurrent use.
type Validator struct {
	resolver MXResolver

	mu    sync.Mutex
	cache map[string]model.CheckResult
}

// NewValidator creates a Validator backed by resolver.
func NewValidator(resolver MXResolver) *Validator {
	return &Validator{
		resolver: resolver,
		cache:    make(map[string]model.CheckResult),
	}
}

// CheckDomain validates the format of email and then confirms its domain
// has at least one MX record. Resolution errors other than a definite
// negative answer yield an unavailable result.
func (v *Validator) CheckDomain(ctx context.Context, email string) model.CheckResult {
	if !ValidateFormat(email) {
		return model.Invalid("malformed address")
	}
	email = strings.TrimSpace(email)
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	v.mu.Lock()
	cached, ok := v.cache[domain]
	v.mu.Unlock()
	if ok {
		return cached
	}

	res := v.lookup(ctx, domain)

	// Transient failures are not cached so a later address can retry.
	if res.Status != model.CheckUnavailable {
		v.mu.Lock()
		v.cache[domain] = res
		v.mu.Unlock()
	}
	return res
}

func (v *Validator) lookup(ctx context.Context, domain string) model.CheckResult {
	hosts, err := v.resolver.LookupMX(ctx, domain)
	switch {
	case errors.Is(err, ErrNoRecords):
		return model.Invalid("no mx records for " + domain)
	case err != nil:
		zap.L().Debug("emailcheck: mx lookup failed",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return model.Unavailable(err.Error())
	case len(hosts) == 0:
		return model.Invalid("no mx records for " + domain)
	}
	return model.Valid()
}

// Validate reports whether email passes the format check and, when
// checkDomain is set, the MX check.
func (v *Validator) Validate(ctx context.Context, email string, checkDomain bool) bool {
	if !checkDomain {
		return ValidateFormat(email)
	}
	return v.CheckDomain(ctx, email).OK()
}
