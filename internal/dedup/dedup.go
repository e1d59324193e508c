// Package dedup collapses raw lead records that share a provider place_id.
package dedup

import (
	"go.uber.org/zap"

	"github.com/rapidreach/lead-finder/internal/model"
)

// Merge deduplicates raw leads by place_id and validates the survivors.
//
// Records with an empty place_id cannot be deduplicated safely and are
// dropped. The first occurrence of a place_id is kept verbatim; later
// occurrences only fill fields the stored record does not have yet, so the
// first non-empty value wins per field. Records that fail validation are
// dropped from the output without failing the batch.
//
// Output order follows first appearance, which makes the function
// idempotent: merging an already-merged batch changes nothing.
func Merge(raw []model.RawLead) []model.Lead {
	seen := make(map[string]*model.RawLead, len(raw))
	order := make([]string, 0, len(raw))

	for _, r := range raw {
		if r.PlaceID == "" {
			continue
		}
		existing, ok := seen[r.PlaceID]
		if !ok {
			rec := r
			seen[r.PlaceID] = &rec
			order = append(order, r.PlaceID)
			continue
		}
		fillBlanks(existing, r)
	}

	leads := make([]model.Lead, 0, len(order))
	for _, pid := range order {
		lead, err := seen[pid].Validate()
		if err != nil {
			zap.L().Debug("dedup: dropping invalid lead",
				zap.String("place_id", pid),
				zap.Error(err),
			)
			continue
		}
		leads = append(leads, lead)
	}
	return leads
}

// fillBlanks copies a field from incoming into existing only when existing
// has no value for it yet. Earlier non-empty values are never overwritten.
func fillBlanks(existing *model.RawLead, incoming model.RawLead) {
	fillString(&existing.BusinessName, incoming.BusinessName)
	fillString(&existing.Address, incoming.Address)
	fillString(&existing.City, incoming.City)
	fillString(&existing.Phone, incoming.Phone)
	fillString(&existing.Email, incoming.Email)
	fillString(&existing.Website, incoming.Website)
	fillString(&existing.BusinessType, incoming.BusinessType)
	fillString(&existing.LeadStatus, incoming.LeadStatus)
	fillString(&existing.DiscoveredAt, incoming.DiscoveredAt)
	fillString(&existing.Notes, incoming.Notes)

	if existing.Rating == 0 && incoming.Rating != 0 {
		existing.Rating = incoming.Rating
	}
	if existing.TotalRatings == 0 && incoming.TotalRatings != 0 {
		existing.TotalRatings = incoming.TotalRatings
	}
	// HasWebsite is derived from Website at validation time, never merged.
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
