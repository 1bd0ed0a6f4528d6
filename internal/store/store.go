// Package store implements the canonical election-results store on
// PostgreSQL: transactional whole-dataset replacement, filtered per-party
// aggregation, and streaming reads for the index sync job.
//
// It requires an `election_results` table:
//
//	CREATE TABLE election_results (
//	    id             BIGSERIAL PRIMARY KEY,
//	    category       INT  NOT NULL,
//	    municipality   INT  NOT NULL,
//	    polling_center TEXT NOT NULL,
//	    polling_place  TEXT NOT NULL,
//	    party          INT  NOT NULL,
//	    votes          INT  NOT NULL CHECK (votes > 0)
//	);
//
// Enum columns hold the integer codes declared in internal/election; the
// search index stores the canonical names instead. Schema migration is owned
// by the deployment, not this package.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/pkg/postgres"
)

// insertBatchSize keeps multi-row inserts under the lib/pq parameter limit
// (65535 / 6 columns).
const insertBatchSize = 500

// Store is the PostgreSQL-backed canonical store. It implements
// election.Backend and ingest.Store.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store on the given client.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

// Name implements election.Backend.
func (s *Store) Name() string { return "postgres" }

// ReplaceAll deletes every existing record and inserts the new set inside a
// single transaction, so readers either see the old dataset or the new one.
func (s *Store) ReplaceAll(ctx context.Context, records []election.Record) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM election_results`); err != nil {
			return fmt.Errorf("deleting existing records: %w", err)
		}
		for start := 0; start < len(records); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(records) {
				end = len(records)
			}
			if err := insertBatch(ctx, tx, records[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertBatch(ctx context.Context, tx *sql.Tx, records []election.Record) error {
	var (
		sb   strings.Builder
		args = make([]any, 0, len(records)*6)
	)
	sb.WriteString(`INSERT INTO election_results (category, municipality, polling_center, polling_place, party, votes) VALUES `)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args,
			int(r.Category), int(r.Municipality), r.PollingCenter, r.PollingPlace, int(r.Party), r.Votes)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting %d records: %w", len(records), err)
	}
	return nil
}

// Totals implements election.Backend against the relational store. Free-text
// filter values are existence-probed first so "value does not exist" is
// distinguishable from "filter matched nothing".
func (s *Store) Totals(ctx context.Context, f election.Filter) (election.Totals, error) {
	if f.PollingCenter != "" {
		exists, err := s.columnValueExists(ctx, "polling_center", f.PollingCenter)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, election.NotFoundPollingCenter(f.PollingCenter)
		}
	}
	if f.PollingPlace != "" {
		exists, err := s.columnValueExists(ctx, "polling_place", f.PollingPlace)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, election.NotFoundPollingPlace(f.PollingPlace)
		}
	}

	where, args := buildWhere(f)
	query := `SELECT party, SUM(votes) FROM election_results` + where + ` GROUP BY party`

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying aggregated totals: %w", err)
	}
	defer rows.Close()

	totals := make(election.Totals)
	for rows.Next() {
		var (
			partyCode int
			sum       int
		)
		if err := rows.Scan(&partyCode, &sum); err != nil {
			return nil, fmt.Errorf("scanning aggregation row: %w", err)
		}
		party := election.Party(partyCode)
		if !party.Storable() {
			s.logger.Warn("skipping unknown party code in store", "code", partyCode)
			continue
		}
		totals[party] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating aggregation rows: %w", err)
	}
	return totals, nil
}

// buildWhere translates a Filter into a WHERE clause. Wildcard enum values
// and empty strings add no condition.
func buildWhere(f election.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if f.Category != election.CategoryAll {
		add("category", int(f.Category))
	}
	if f.Municipality != election.MunicipalityAll {
		add("municipality", int(f.Municipality))
	}
	if f.PollingCenter != "" {
		add("polling_center", f.PollingCenter)
	}
	if f.PollingPlace != "" {
		add("polling_place", f.PollingPlace)
	}
	if f.Party != election.PartyAll {
		add("party", int(f.Party))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) columnValueExists(ctx context.Context, column, value string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM election_results WHERE %s = $1)`, column)
	if err := s.db.DB.QueryRowContext(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("probing %s %q: %w", column, value, err)
	}
	return exists, nil
}

// All returns every record in the canonical store, in insertion order.
func (s *Store) All(ctx context.Context) ([]election.Record, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, category, municipality, polling_center, polling_place, party, votes
		 FROM election_results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying all records: %w", err)
	}
	defer rows.Close()

	var records []election.Record
	for rows.Next() {
		var (
			r            election.Record
			category     int
			municipality int
			party        int
		)
		if err := rows.Scan(&r.ID, &category, &municipality, &r.PollingCenter, &r.PollingPlace, &party, &r.Votes); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Category = election.Category(category)
		r.Municipality = election.Municipality(municipality)
		r.Party = election.Party(party)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM election_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
