package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidreach/lead-finder/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, leadsTable: "leads"}
	return s, mock
}

func TestPostgresStore_InsertLeads_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// No expectations set: an empty batch must never touch the pool.
	report := s.InsertLeads(context.Background(), nil)

	assert.Equal(t, 0, report.Uploaded)
	assert.Empty(t, report.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLeads_StampsDiscoveredAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads \(place_id, business_name`).
		WithArgs("p1", "Diner", "1 Main St", "Austin, TX", "555-1000", "", "", 4.5, 12,
			"restaurant", false, "new", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	report := s.InsertLeads(context.Background(), []model.Lead{{
		PlaceID:      "p1",
		BusinessName: "Diner",
		Address:      "1 Main St",
		City:         "Austin, TX",
		Phone:        "555-1000",
		Rating:       4.5,
		TotalRatings: 12,
		BusinessType: "restaurant",
		LeadStatus:   model.LeadStatusNew,
	}})

	assert.Equal(t, 1, report.Uploaded)
	assert.Empty(t, report.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLeads_KeepsExistingDiscoveredAt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("p1", "", "", "", "", "", "", 0.0, 0, "", false, "new", ts, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	report := s.InsertLeads(context.Background(), []model.Lead{{
		PlaceID:      "p1",
		LeadStatus:   model.LeadStatusNew,
		DiscoveredAt: ts,
	}})

	assert.Equal(t, 1, report.Uploaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLeads_RowFailureContinues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("p1", "", "", "", "", "", "", 0.0, 0, "", false, "new", pgxmock.AnyArg(), "").
		WillReturnError(eris.New("constraint violation"))
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("p2", "", "", "", "", "", "", 0.0, 0, "", false, "new", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	report := s.InsertLeads(context.Background(), []model.Lead{
		{PlaceID: "p1", LeadStatus: model.LeadStatusNew},
		{PlaceID: "p2", LeadStatus: model.LeadStatusNew},
	})

	assert.Equal(t, 1, report.Uploaded)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "p1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertNoWebsiteLeads_TargetsPriorityTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads_no_website`).
		WithArgs("p1", "", "", "", "", "", "", 0.0, 0, "", false, "new", pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	report := s.InsertNoWebsiteLeads(context.Background(), []model.Lead{
		{PlaceID: "p1", LeadStatus: model.LeadStatusNew},
	})

	assert.Equal(t, 1, report.Uploaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryLeads_CityFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(leadColumns).
		AddRow("p1", "Diner", "1 Main St", "Austin, TX", "555-1000", "", "", 4.5, 12,
			"restaurant", false, "new", &ts, "")

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE city = \$1 ORDER BY discovered_at DESC LIMIT \$2`).
		WithArgs("Austin, TX", 100).
		WillReturnRows(rows)

	leads, err := s.QueryLeads(context.Background(), "Austin, TX", 100)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "p1", leads[0].PlaceID)
	// Timestamps come back as text for clean JSON serialization.
	assert.Equal(t, "2025-06-01T12:00:00Z", leads[0].DiscoveredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryNoWebsiteLeads_OrderedByRating(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(leadColumns).
		AddRow("p2", "Best Rated", "", "Austin, TX", "", "", "", 4.9, 80, "salon", false, "new", nil, "").
		AddRow("p1", "Runner Up", "", "Austin, TX", "", "", "", 4.1, 20, "salon", false, "new", nil, "")

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE has_website = FALSE AND city = \$1 ORDER BY rating DESC LIMIT \$2`).
		WithArgs("Austin, TX", 50).
		WillReturnRows(rows)

	leads, err := s.QueryNoWebsiteLeads(context.Background(), "Austin, TX", 50)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Best Rated", leads[0].BusinessName)
	assert.Empty(t, leads[0].DiscoveredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryLeads_NoFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM leads ORDER BY discovered_at DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(leadColumns))

	leads, err := s.QueryLeads(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_CreatesBothTables(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads_no_website`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
