package model

// DefaultBusinessTypes is searched when a request does not name any.
var DefaultBusinessTypes = []string{"restaurant", "salon", "plumber", "dentist", "auto repair"}

// FindLeadsRequest is the body of POST /find_leads.
type FindLeadsRequest struct {
	City          string   `json:"city"`
	BusinessTypes []string `json:"business_types,omitempty"`
	RadiusKM      int      `json:"radius_km,omitempty"`
	MaxResults    int      `json:"max_results,omitempty"`
	ExcludeChains *bool    `json:"exclude_chains,omitempty"`
	MinRating     float64  `json:"min_rating,omitempty"`
	CallbackURL   string   `json:"callback_url,omitempty"`
}

// SearchDefaults carries the configured fallbacks applied to unset request
// fields. Zero values fall through to the built-in defaults.
type SearchDefaults struct {
	BusinessTypes []string
	RadiusKM      int
	MaxResults    int
	MinRating     float64
}

// Normalize fills unset request fields from the configured defaults, then
// from the built-in ones.
func (r *FindLeadsRequest) Normalize(d SearchDefaults) {
	if len(r.BusinessTypes) == 0 {
		r.BusinessTypes = d.BusinessTypes
	}
	if len(r.BusinessTypes) == 0 {
		r.BusinessTypes = DefaultBusinessTypes
	}
	if r.RadiusKM <= 0 {
		r.RadiusKM = d.RadiusKM
	}
	if r.RadiusKM <= 0 {
		r.RadiusKM = 10
	}
	if r.MaxResults <= 0 {
		r.MaxResults = d.MaxResults
	}
	if r.MaxResults <= 0 {
		r.MaxResults = 60
	}
	if r.MinRating <= 0 {
		r.MinRating = d.MinRating
	}
	if r.ExcludeChains == nil {
		t := true
		r.ExcludeChains = &t
	}
}

// FindLeadsResponse is the success envelope of POST /find_leads. Mock marks
// runs whose leads came from the synthetic search fallback.
type FindLeadsResponse struct {
	Status       string    `json:"status"`
	City         string    `json:"city"`
	TotalLeads   int       `json:"total_leads"`
	Leads        []RawLead `json:"leads"`
	AgentSummary string    `json:"agent_summary"`
	Mock         bool      `json:"mock,omitempty"`
}

// ErrorResponse is the failure envelope. Domain failures are reported this
// way with a 200 status; no exception crosses the HTTP boundary as a 500.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SearchResult is the envelope returned by the search tool. Mock marks
// synthetic results produced when no provider credential is configured, so
// callers can never mistake them for live data.
type SearchResult struct {
	Leads []RawLead `json:"leads"`
	Total int       `json:"total"`
	City  string    `json:"city"`
	Mock  bool      `json:"mock,omitempty"`
}

// UploadReport summarizes one persistence call: rows inserted and per-row
// error descriptions for rows that failed.
type UploadReport struct {
	Uploaded int      `json:"uploaded"`
	Errors   []string `json:"errors"`
}
