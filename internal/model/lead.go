package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// LeadStatus represents the outreach state of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Lead is a discovered business, the canonical output unit of the service.
// Discovery only ever produces leads in status "new"; later states are set
// by downstream outreach tooling.
type Lead struct {
	PlaceID      string     `json:"place_id"`
	BusinessName string     `json:"business_name"`
	Address      string     `json:"address"`
	City         string     `json:"city"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Website      string     `json:"website"`
	Rating       float64    `json:"rating"`
	TotalRatings int        `json:"total_ratings"`
	BusinessType string     `json:"business_type"`
	HasWebsite   bool       `json:"has_website"`
	LeadStatus   LeadStatus `json:"lead_status"`
	DiscoveredAt time.Time  `json:"discovered_at,omitzero"`
	Notes        string     `json:"notes,omitempty"`
}

// RawLead is a loosely-populated lead record as returned by the search
// provider or a tool call, before validation. All fields are optional;
// duplicate RawLeads sharing a PlaceID are merged by the dedup engine.
type RawLead struct {
	PlaceID      string  `json:"place_id"`
	BusinessName string  `json:"business_name"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	Website      string  `json:"website"`
	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
	BusinessType string  `json:"business_type"`
	HasWebsite   bool    `json:"has_website"`
	LeadStatus   string  `json:"lead_status"`
	DiscoveredAt string  `json:"discovered_at,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// Validate converts a RawLead into a canonical Lead. A missing place_id is
// an error. HasWebsite is recomputed from Website so the two can never
// disagree, and an unset status defaults to "new".
func (r RawLead) Validate() (Lead, error) {
	if r.PlaceID == "" {
		return Lead{}, eris.New("model: lead missing place_id")
	}

	status := LeadStatus(r.LeadStatus)
	if status == "" {
		status = LeadStatusNew
	}
	switch status {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusRejected:
	default:
		return Lead{}, eris.Errorf("model: invalid lead_status %q", r.LeadStatus)
	}

	if r.Rating < 0 {
		return Lead{}, eris.Errorf("model: negative rating %f", r.Rating)
	}
	if r.TotalRatings < 0 {
		return Lead{}, eris.Errorf("model: negative total_ratings %d", r.TotalRatings)
	}

	lead := Lead{
		PlaceID:      r.PlaceID,
		BusinessName: r.BusinessName,
		Address:      r.Address,
		City:         r.City,
		Phone:        r.Phone,
		Email:        r.Email,
		Website:      r.Website,
		Rating:       r.Rating,
		TotalRatings: r.TotalRatings,
		BusinessType: r.BusinessType,
		HasWebsite:   r.Website != "",
		LeadStatus:   status,
		Notes:        r.Notes,
	}

	if r.DiscoveredAt != "" {
		ts, err := time.Parse(time.RFC3339, r.DiscoveredAt)
		if err != nil {
			return Lead{}, eris.Wrapf(err, "model: parse discovered_at %q", r.DiscoveredAt)
		}
		lead.DiscoveredAt = ts
	}

	return lead, nil
}

// ToRaw converts a Lead back to the wire shape used by tool results and
// the read-back API.
func (l Lead) ToRaw() RawLead {
	raw := RawLead{
		PlaceID:      l.PlaceID,
		BusinessName: l.BusinessName,
		Address:      l.Address,
		City:         l.City,
		Phone:        l.Phone,
		Email:        l.Email,
		Website:      l.Website,
		Rating:       l.Rating,
		TotalRatings: l.TotalRatings,
		BusinessType: l.BusinessType,
		HasWebsite:   l.HasWebsite,
		LeadStatus:   string(l.LeadStatus),
		Notes:        l.Notes,
	}
	if !l.DiscoveredAt.IsZero() {
		raw.DiscoveredAt = l.DiscoveredAt.UTC().Format(time.RFC3339)
	}
	return raw
}
