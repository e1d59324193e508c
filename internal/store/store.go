// Package store persists discovered leads. Two backends implement the
// gateway (Postgres via pgx, SQLite via modernc) plus an in-memory keyed
// store for fast read-back of the latest discovery run.
package store

import (
	"context"
	"fmt"

	"github.com/rapidreach/lead-finder/internal/model"
)

// NoWebsiteSuffix names the priority table holding leads without a website.
const NoWebsiteSuffix = "_no_website"

// Store is the persistence gateway for leads.
//
// Inserts are best-effort with partial-success semantics: a failing row is
// recorded in the report's Errors and never aborts the remaining rows. The
// gateway does not deduplicate; that happens upstream in the dedup engine.
type Store interface {
	// Migrate creates the leads tables if they do not exist. Idempotent.
	Migrate(ctx context.Context) error

	// InsertLeads appends leads to the general table, stamping
	// discovered_at with the current time where missing. An empty batch
	// returns a zero report without contacting the database.
	InsertLeads(ctx context.Context, leads []model.Lead) *model.UploadReport

	// InsertNoWebsiteLeads appends leads to the priority no-website table
	// with the same contract as InsertLeads.
	InsertNoWebsiteLeads(ctx context.Context, leads []model.Lead) *model.UploadReport

	// QueryLeads lists leads, optionally filtered by city, newest first.
	QueryLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error)

	// QueryNoWebsiteLeads lists leads lacking a website, optionally
	// filtered by city, best-rated first.
	QueryNoWebsiteLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error)

	Close() error
}

// leadColumns is the column list shared by both tables and both drivers.
var leadColumns = []string{
	"place_id", "business_name", "address", "city", "phone", "email",
	"website", "rating", "total_ratings", "business_type", "has_website",
	"lead_status", "discovered_at", "notes",
}

func rowError(placeID string, err error) string {
	return fmt.Sprintf("%s: %v", placeID, err)
}
