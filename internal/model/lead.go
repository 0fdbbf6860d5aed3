package model

import "encoding/json"

// Canonical column names of the persisted lead table.
const (
	ColumnName      = "Name"
	ColumnPhone     = "Phone"
	ColumnAddress   = "Address"
	ColumnWebsite   = "Website"
	ColumnEmail     = "Email"
	ColumnInstagram = "Instagram"
	ColumnFacebook  = "Facebook"
	ColumnLinkedIn  = "LinkedIn"
)

// DefaultHeader is written to an empty sheet before the first append.
var DefaultHeader = []string{
	ColumnName,
	ColumnPhone,
	ColumnAddress,
	ColumnWebsite,
	ColumnEmail,
	ColumnInstagram,
	ColumnFacebook,
	ColumnLinkedIn,
}

// ScrapeRecord is one place returned by the search job. It lives only for the
// duration of a workflow run.
type ScrapeRecord struct {
	Title   string `json:"title"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Website string `json:"website"`

	// Extra holds the service-specific fields we do not interpret.
	Extra map[string]json.RawMessage `json:"-"`
}

// Lead is a row of the persisted lead table.
type Lead struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Website   string `json:"website"`
	Email     string `json:"email"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	LinkedIn  string `json:"linkedin"`
}

// Value returns the lead field stored under the given canonical column name.
func (l Lead) Value(column string) string {
	switch column {
	case ColumnName:
		return l.Name
	case ColumnPhone:
		return l.Phone
	case ColumnAddress:
		return l.Address
	case ColumnWebsite:
		return l.Website
	case ColumnEmail:
		return l.Email
	case ColumnInstagram:
		return l.Instagram
	case ColumnFacebook:
		return l.Facebook
	case ColumnLinkedIn:
		return l.LinkedIn
	default:
		return ""
	}
}

// WithContacts folds an extracted contact bundle into the lead's
// enrichment fields.
func (l Lead) WithContacts(b ContactBundle) Lead {
	l.Email = b.Email
	l.Instagram = b.Instagram
	l.Facebook = b.Facebook
	l.LinkedIn = b.LinkedIn
	return l
}

// ContactBundle is the best-effort result of contact extraction. Empty
// strings mean the signal was not found.
type ContactBundle struct {
	Email     string `json:"email,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// IsEmpty reports whether no signal was found.
func (b ContactBundle) IsEmpty() bool {
	return b == ContactBundle{}
}
