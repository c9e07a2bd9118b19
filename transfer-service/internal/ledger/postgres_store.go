package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
)

// PostgresStore is the production Store. Finalize relies on a conditional
// UPDATE so concurrent finalize attempts on one reference cannot both
// succeed; the losing writer sees zero rows and reports InvalidTransition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO ledger_entries
			(reference, idempotency_key, sender_id, receiver_id, amount, currency, type, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Reference, nullString(entry.IdempotencyKey),
		entry.SenderID, entry.ReceiverID,
		entry.Amount, entry.Currency, entry.Type, entry.Status,
		nullString(entry.Description), entry.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.Wrap(apperr.KindConflict, "duplicate ledger entry", err)
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Finalize(ctx context.Context, reference string, status Status, completedAt time.Time) error {
	if !status.Terminal() {
		return apperr.Newf(apperr.KindInvalidTransition, "%s is not a terminal status", status)
	}

	query := `
		UPDATE ledger_entries
		SET status = $2, completed_at = $3
		WHERE reference = $1 AND status = 'PENDING'
	`
	result, err := s.db.ExecContext(ctx, query, reference, status, completedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize ledger entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize ledger entry: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// Zero rows: either the entry doesn't exist or it's already terminal.
	existing, err := s.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	return apperr.Newf(apperr.KindInvalidTransition, "ledger entry %s is already %s", reference, existing.Status)
}

func (s *PostgresStore) GetByReference(ctx context.Context, reference string) (*Entry, error) {
	query := selectColumns + ` WHERE reference = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, reference))
}

func (s *PostgresStore) GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error) {
	query := selectColumns + ` WHERE idempotency_key = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, key))
}

func (s *PostgresStore) ListByParticipant(ctx context.Context, userID string, status Status) ([]Entry, error) {
	query := selectColumns + `
		WHERE (sender_id = $1 OR receiver_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) Summarize(ctx context.Context, userID string, since time.Time) (*Summary, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN sender_id = $1 THEN amount ELSE 0 END), 0) AS total_sent,
			COALESCE(SUM(CASE WHEN receiver_id = $1 THEN amount ELSE 0 END), 0) AS total_received,
			COUNT(*) AS transaction_count
		FROM ledger_entries
		WHERE (sender_id = $1 OR receiver_id = $1)
		  AND status = 'COMPLETED'
		  AND created_at >= $2
	`
	var summary Summary
	err := s.db.QueryRowContext(ctx, query, userID, since).Scan(
		&summary.TotalSent, &summary.TotalReceived, &summary.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transfers: %w", err)
	}
	summary.Net = summary.TotalReceived.Sub(summary.TotalSent)
	return &summary, nil
}

func (s *PostgresStore) TopCounterparties(ctx context.Context, userID string, limit int) ([]Counterparty, error) {
	query := `
		SELECT receiver_id, COUNT(*) AS transaction_count, SUM(amount) AS total_amount
		FROM ledger_entries
		WHERE sender_id = $1 AND status = 'COMPLETED'
		GROUP BY receiver_id
		ORDER BY transaction_count DESC, receiver_id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank counterparties: %w", err)
	}
	defer rows.Close()

	var result []Counterparty
	for rows.Next() {
		var cp Counterparty
		if err := rows.Scan(&cp.CounterpartyID, &cp.Count, &cp.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan counterparty: %w", err)
		}
		result = append(result, cp)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DailyVolume(ctx context.Context, since time.Time) ([]DayVolume, error) {
	query := `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS transaction_date,
		       COUNT(*) AS transaction_count,
		       SUM(amount) AS total_volume
		FROM ledger_entries
		WHERE status = 'COMPLETED' AND created_at >= $1
		GROUP BY created_at::date
		ORDER BY transaction_date DESC
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily volume: %w", err)
	}
	defer rows.Close()

	var result []DayVolume
	for rows.Next() {
		var dv DayVolume
		if err := rows.Scan(&dv.Date, &dv.Count, &dv.TotalVolume); err != nil {
			return nil, fmt.Errorf("failed to scan daily volume: %w", err)
		}
		result = append(result, dv)
	}
	return result, rows.Err()
}

func (s *PostgresStore) LargeTransfers(ctx context.Context, minAmount decimal.Decimal, limit int) ([]Entry, error) {
	query := selectColumns + `
		WHERE status = 'COMPLETED' AND amount >= $1
		ORDER BY amount DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, minAmount, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list large transfers: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

const selectColumns = `
	SELECT reference, idempotency_key, sender_id, receiver_id, amount, currency, type, status, description, created_at, completed_at
	FROM ledger_entries
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*Entry, error) {
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "ledger entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var idempotencyKey, description sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&entry.Reference, &idempotencyKey, &entry.SenderID, &entry.ReceiverID,
		&entry.Amount, &entry.Currency, &entry.Type, &entry.Status,
		&description, &entry.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.IdempotencyKey = idempotencyKey.String
	entry.Description = description.String
	if completedAt.Valid {
		at := completedAt.Time
		entry.CompletedAt = &at
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Store = (*PostgresStore)(nil)
