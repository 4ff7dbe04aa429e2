// Package persistence provides database-backed adapters.
package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"signal_server/core/domain"
	"signal_server/pkg/normalize"
)

// BlocklistAdapter reads and maintains the community blocklist in Postgres.
// Used by self-hosted deployments as the blocklist source behind the
// authority port.
type BlocklistAdapter struct {
	db *sqlx.DB
}

// NewBlocklistAdapter creates a new BlocklistAdapter.
func NewBlocklistAdapter(db *sqlx.DB) *BlocklistAdapter {
	return &BlocklistAdapter{db: db}
}

// blocklistRow represents the database row
type blocklistRow struct {
	ID             int64          `db:"id"`
	CompanyName    string         `db:"company_name"`
	NameNormalized string         `db:"name_normalized"`
	Aliases        pq.StringArray `db:"aliases"` // text[]
	Category       string         `db:"category"`
	Verified       bool           `db:"verified"`
	SubmittedCount int            `db:"submitted_count"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// FetchBlocklist returns every blocklist entry, verified entries first.
func (a *BlocklistAdapter) FetchBlocklist(ctx context.Context) ([]domain.BlocklistEntry, error) {
	query := `
		SELECT id, company_name, name_normalized, aliases, category, verified, submitted_count, created_at, updated_at
		FROM company_blocklist
		ORDER BY verified DESC, submitted_count DESC, company_name
	`

	var rows []blocklistRow
	if err := a.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	entries := make([]domain.BlocklistEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.BlocklistEntry{
			CompanyName:           row.CompanyName,
			CompanyNameNormalized: row.NameNormalized,
			Aliases:               []string(row.Aliases),
			Category:              domain.BlocklistCategory(row.Category),
			Source:                "community",
			Verified:              row.Verified,
			SubmittedCount:        row.SubmittedCount,
		})
	}
	return entries, nil
}

// Submit records a community report for a company. Repeat submissions bump
// the counter instead of inserting duplicates; matching is on the normalized
// name so "Acme Inc." and "acme" land on the same row.
func (a *BlocklistAdapter) Submit(ctx context.Context, companyName string, category domain.BlocklistCategory) error {
	query := `
		INSERT INTO company_blocklist (company_name, name_normalized, category, verified, submitted_count, updated_at)
		VALUES ($1, $2, $3, FALSE, 1, NOW())
		ON CONFLICT (name_normalized) DO UPDATE SET
			submitted_count = company_blocklist.submitted_count + 1,
			updated_at = NOW()
	`

	_, err := a.db.ExecContext(ctx, query, companyName, normalize.CompanyName(companyName), string(category))
	return err
}
