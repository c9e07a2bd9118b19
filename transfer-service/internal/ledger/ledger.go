// Package ledger holds the durable record of transfer attempts and the state
// machine that governs them. Entries are append/update only; nothing is ever
// deleted, so a crashed transfer always leaves a reconcilable trail.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	// StatusReversed marks a transfer whose debit succeeded, credit failed,
	// and the compensating credit-back restored the sender's balance.
	StatusReversed Status = "REVERSED"
)

// Terminal reports whether the status is absorbing. A terminal entry can
// never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known ledger status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// TransferType is fixed for now; the column exists so future entry kinds
// (fees, adjustments) can share the same table.
const TransferType = "TRANSFER"

// Entry is the record of one transfer attempt. Reference is the only
// externally stable identifier and is never reused. CompletedAt is nil until
// the entry reaches a terminal status.
type Entry struct {
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"-"`
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           string          `json:"type"`
	Status         Status          `json:"status"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"createdTimestamp"`
	CompletedAt    *time.Time      `json:"completedTimestamp,omitempty"`
}

// Summary aggregates a user's completed transfers over a window.
type Summary struct {
	TotalSent     decimal.Decimal `json:"totalSent"`
	TotalReceived decimal.Decimal `json:"totalReceived"`
	Count         int64           `json:"transactionCount"`
	Net           decimal.Decimal `json:"netAmount"`
}

// Counterparty is one row of the top-counterparties report.
type Counterparty struct {
	CounterpartyID string          `json:"counterpartyId"`
	Count          int64           `json:"transactionCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

// DayVolume is one row of the daily volume report. Date is a calendar date
// (YYYY-MM-DD), not a timestamp.
type DayVolume struct {
	Date        string          `json:"date"`
	Count       int64           `json:"transactionCount"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
}

// Store persists ledger entries. Implementations must make Finalize
// linearizable per reference: of two concurrent finalize attempts, exactly
// one succeeds and the other fails with InvalidTransition.
type Store interface {
	// Create persists a new entry. Fails with Conflict on a duplicate
	// reference or a duplicate idempotency key.
	Create(ctx context.Context, entry *Entry) error

	// Finalize moves a PENDING entry to a terminal status and stamps
	// completedAt. Fails with NotFound if the reference is unknown and with
	// InvalidTransition if the entry is already terminal.
	Finalize(ctx context.Context, reference string, status Status, completedAt time.Time) error

	GetByReference(ctx context.Context, reference string) (*Entry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)

	// ListByParticipant returns every entry where the user is sender or
	// receiver, newest first. An empty status returns all statuses.
	ListByParticipant(ctx context.Context, userID string, status Status) ([]Entry, error)

	// Summarize aggregates COMPLETED entries touching the user since the
	// given instant.
	Summarize(ctx context.Context, userID string, since time.Time) (*Summary, error)

	// TopCounterparties ranks the receivers of the user's COMPLETED
	// transfers by descending transfer count.
	TopCounterparties(ctx context.Context, userID string, limit int) ([]Counterparty, error)

	// DailyVolume buckets COMPLETED entries by calendar day since the given
	// instant, newest day first.
	DailyVolume(ctx context.Context, since time.Time) ([]DayVolume, error)

	// LargeTransfers returns COMPLETED entries at or above minAmount,
	// descending by amount.
	LargeTransfers(ctx context.Context, minAmount decimal.Decimal, limit int) ([]Entry, error)
}
