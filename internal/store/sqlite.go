package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rapidreach/lead-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs
// without a Postgres warehouse.
type SQLiteStore struct {
	db         *sql.DB
	leadsTable string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, leadsTable string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, leadsTable: leadsTable}, nil
}

const sqliteLeadsSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	place_id      TEXT NOT NULL,
	business_name TEXT,
	address       TEXT,
	city          TEXT,
	phone         TEXT,
	email         TEXT,
	website       TEXT,
	rating        REAL,
	total_ratings INTEGER,
	business_type TEXT,
	has_website   INTEGER,
	lead_status   TEXT,
	discovered_at TEXT,
	notes         TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_city ON %[1]s(city);
CREATE INDEX IF NOT EXISTS idx_%[1]s_discovered_at ON %[1]s(discovered_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, table := range []string{s.leadsTable, s.leadsTable + NoWebsiteSuffix} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteLeadsSchema, table)); err != nil {
			return eris.Wrapf(err, "sqlite: migrate %s", table)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) *model.UploadReport {
	return s.insert(ctx, s.leadsTable, leads)
}

func (s *SQLiteStore) InsertNoWebsiteLeads(ctx context.Context, leads []model.Lead) *model.UploadReport {
	return s.insert(ctx, s.leadsTable+NoWebsiteSuffix, leads)
}

func (s *SQLiteStore) insert(ctx context.Context, table string, leads []model.Lead) *model.UploadReport {
	report := &model.UploadReport{Errors: []string{}}
	if len(leads) == 0 {
		return report
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		table, strings.Join(leadColumns, ", "),
	)

	now := time.Now().UTC()
	for _, lead := range leads {
		discoveredAt := lead.DiscoveredAt
		if discoveredAt.IsZero() {
			discoveredAt = now
		}

		_, err := s.db.ExecContext(ctx, query,
			lead.PlaceID, lead.BusinessName, lead.Address, lead.City,
			lead.Phone, lead.Email, lead.Website, lead.Rating,
			lead.TotalRatings, lead.BusinessType, lead.HasWebsite,
			string(lead.LeadStatus), discoveredAt.Format(time.RFC3339), lead.Notes,
		)
		if err != nil {
			report.Errors = append(report.Errors, rowError(lead.PlaceID, err))
			zap.L().Warn("sqlite: insert lead failed",
				zap.String("table", table),
				zap.String("place_id", lead.PlaceID),
				zap.Error(err),
			)
			continue
		}
		report.Uploaded++
	}
	return report
}

func (s *SQLiteStore) QueryLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(leadColumns, ", "), s.leadsTable)
	var args []any
	if city != "" {
		query += ` WHERE city = ? ORDER BY discovered_at DESC LIMIT ?`
		args = []any{city, limit}
	} else {
		query += ` ORDER BY discovered_at DESC LIMIT ?`
		args = []any{limit}
	}
	return s.query(ctx, query, args)
}

func (s *SQLiteStore) QueryNoWebsiteLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE has_website = 0`, strings.Join(leadColumns, ", "), s.leadsTable)
	var args []any
	if city != "" {
		query += ` AND city = ? ORDER BY rating DESC LIMIT ?`
		args = []any{city, limit}
	} else {
		query += ` ORDER BY rating DESC LIMIT ?`
		args = []any{limit}
	}
	return s.query(ctx, query, args)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args []any) ([]model.RawLead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.RawLead
	for rows.Next() {
		var raw model.RawLead
		var discoveredAt sql.NullString
		err := rows.Scan(
			&raw.PlaceID, &raw.BusinessName, &raw.Address, &raw.City,
			&raw.Phone, &raw.Email, &raw.Website, &raw.Rating,
			&raw.TotalRatings, &raw.BusinessType, &raw.HasWebsite,
			&raw.LeadStatus, &discoveredAt, &raw.Notes,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		raw.DiscoveredAt = discoveredAt.String
		leads = append(leads, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate leads")
	}
	return leads, nil
}
