package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rapidreach/lead-finder/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, extracted so pgxmock
// can stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool       Pool
	leadsTable string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString, leadsTable string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, leadsTable: leadsTable}, nil
}

const postgresLeadsSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	place_id      TEXT NOT NULL,
	business_name TEXT,
	address       TEXT,
	city          TEXT,
	phone         TEXT,
	email         TEXT,
	website       TEXT,
	rating        DOUBLE PRECISION,
	total_ratings INTEGER,
	business_type TEXT,
	has_website   BOOLEAN,
	lead_status   TEXT,
	discovered_at TIMESTAMPTZ,
	notes         TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_city ON %[1]s(city);
CREATE INDEX IF NOT EXISTS idx_%[1]s_discovered_at ON %[1]s(discovered_at);
CREATE INDEX IF NOT EXISTS idx_%[1]s_has_website ON %[1]s(has_website);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, table := range []string{s.leadsTable, s.leadsTable + NoWebsiteSuffix} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(postgresLeadsSchema, table)); err != nil {
			return eris.Wrapf(err, "postgres: migrate %s", table)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) *model.UploadReport {
	return s.insert(ctx, s.leadsTable, leads)
}

func (s *PostgresStore) InsertNoWebsiteLeads(ctx context.Context, leads []model.Lead) *model.UploadReport {
	return s.insert(ctx, s.leadsTable+NoWebsiteSuffix, leads)
}

// insert appends rows one at a time so a failing row cannot take the rest
// of the batch down with it.
func (s *PostgresStore) insert(ctx context.Context, table string, leads []model.Lead) *model.UploadReport {
	report := &model.UploadReport{Errors: []string{}}
	if len(leads) == 0 {
		return report
	}

	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		table, strings.Join(leadColumns, ", "),
	)

	now := time.Now().UTC()
	for _, lead := range leads {
		discoveredAt := lead.DiscoveredAt
		if discoveredAt.IsZero() {
			discoveredAt = now
		}

		_, err := s.pool.Exec(ctx, sql,
			lead.PlaceID, lead.BusinessName, lead.Address, lead.City,
			lead.Phone, lead.Email, lead.Website, lead.Rating,
			lead.TotalRatings, lead.BusinessType, lead.HasWebsite,
			string(lead.LeadStatus), discoveredAt, lead.Notes,
		)
		if err != nil {
			report.Errors = append(report.Errors, rowError(lead.PlaceID, err))
			zap.L().Warn("postgres: insert lead failed",
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

func (s *PostgresStore) QueryLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(leadColumns, ", "), s.leadsTable)
	var args []any
	if city != "" {
		sql += ` WHERE city = $1 ORDER BY discovered_at DESC LIMIT $2`
		args = []any{city, limit}
	} else {
		sql += ` ORDER BY discovered_at DESC LIMIT $1`
		args = []any{limit}
	}
	return s.query(ctx, sql, args)
}

func (s *PostgresStore) QueryNoWebsiteLeads(ctx context.Context, city string, limit int) ([]model.RawLead, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE has_website = FALSE`, strings.Join(leadColumns, ", "), s.leadsTable)
	var args []any
	if city != "" {
		sql += ` AND city = $1 ORDER BY rating DESC LIMIT $2`
		args = []any{city, limit}
	} else {
		sql += ` ORDER BY rating DESC LIMIT $1`
		args = []any{limit}
	}
	return s.query(ctx, sql, args)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args []any) ([]model.RawLead, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query leads")
	}
	defer rows.Close()

	var leads []model.RawLead
	for rows.Next() {
		var raw model.RawLead
		var discoveredAt *time.Time
		err := rows.Scan(
			&raw.PlaceID, &raw.BusinessName, &raw.Address, &raw.City,
			&raw.Phone, &raw.Email, &raw.Website, &raw.Rating,
			&raw.TotalRatings, &raw.BusinessType, &raw.HasWebsite,
			&raw.LeadStatus, &discoveredAt, &raw.Notes,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		if discoveredAt != nil {
			raw.DiscoveredAt = discoveredAt.UTC().Format(time.RFC3339)
		}
		leads = append(leads, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}
