package model

// CheckStatus is the outcome of a best-effort validity check.
type CheckStatus string

const (
	CheckValid       CheckStatus = "valid"
	CheckInvalid     CheckStatus = "invalid"
	CheckUnavailable CheckStatus = "unavailable"
)

// CheckResult separates "checked and invalid" from "could not check".
type CheckResult struct {
	Status CheckStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// OK is the fail-closed boolean view: only a completed, positive check counts.
func (c CheckResult) OK() bool {
	return c.Status == CheckValid
}

// Valid returns a positive result.
func Valid() CheckResult {
	return CheckResult{Status: CheckValid}
}

// Invalid returns a negative result with the reason it was rejected.
func Invalid(reason string) CheckResult {
	return CheckResult{Status: CheckInvalid, Reason: reason}
}

// Unavailable returns a result for a check that could not be completed.
func Unavailable(reason string) CheckResult {
	return CheckResult{Status: CheckUnavailable, Reason: reason}
}
