// Package search resolves a free-text corporate name to the alphabetical
// window of corpus entries around its best match.
package search

// Search families.
const (
	TypeAlphabetical = "alphabetical_search"
	TypeDissolved    = "alphabetical_dissolved_search"
)

// Outcome statuses.
const (
	StatusFound    = "search-found"
	StatusNotFound = "search-not-found"
	StatusError    = "search-error"
)

// Window bounds.
const (
	RowsAbove = 9
	RowsBelow = 10
	MaxRows   = RowsAbove + 1 + RowsBelow
)

// Links holds the resource links of a company.
type Links struct {
	Self string `json:"self,omitempty"`
}

// CompanyRecord is the read-only projection of one indexed company.
type CompanyRecord struct {
	ID                    string `json:"id,omitempty"`
	CorporateName         string `json:"corporate_name"`
	CompanyNumber         string `json:"company_number"`
	CompanyStatus         string `json:"company_status,omitempty"`
	CompanyType           string `json:"company_type,omitempty"`
	Links                 Links  `json:"links"`
	OrderedAlphaKeyWithID string `json:"ordered_alpha_key_with_id"`
}

// Window is the ascending run of entries around the anchor. The anchor
// appears exactly once.
type Window struct {
	SearchType    string          `json:"search_type"`
	BestMatchName string          `json:"top_hit"`
	Results       []CompanyRecord `json:"results"`
}

// Response is the outcome of one search. Window is nil unless Status is
// StatusFound.
type Response struct {
	Status string  `json:"status"`
	Window *Window `json:"window,omitempty"`
}
