// Package query serves the transfer read model: history, rolling summaries
// and the reporting endpoints consumed by back-office tooling.
package query

import (
	"context"
	"time"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/transfer-service/internal/ledger"
)

const (
	defaultSummaryDays = 30
	defaultVolumeDays  = 7
	defaultTopLimit    = 5
	defaultLargeLimit  = 10
)

type TransferQueryService struct {
	store ledger.Store
	now   func() time.Time
}

func NewTransferQueryService(store ledger.Store) *TransferQueryService {
	return &TransferQueryService{store: store, now: time.Now}
}

// History returns all of a user's transfers, newest first. This is the only
// read that includes non-terminal and failed entries; Status narrows it.
func (s *TransferQueryService) History(ctx context.Context, q cqrs.TransferHistoryQuery) ([]ledger.Entry, error) {
	status := ledger.Status(q.Status)
	if q.Status != "" && !ledger.ValidStatus(status) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", q.Status)
	}
	return s.store.ListByParticipant(ctx, q.UserID, status)
}

func (s *TransferQueryService) Summary(ctx context.Context, q cqrs.TransferSummaryQuery) (*ledger.Summary, error) {
	days := q.Days
	if days <= 0 {
		days = defaultSummaryDays
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	return s.store.Summarize(ctx, q.UserID, since)
}

func (s *TransferQueryService) TopCounterparties(ctx context.Context, q cqrs.TopCounterpartiesQuery) ([]ledger.Counterparty, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return s.store.TopCounterparties(ctx, q.UserID, limit)
}

func (s *TransferQueryService) DailyVolume(ctx context.Context, q cqrs.DailyVolumeQuery) ([]ledger.DayVolume, error) {
	days := q.Days
	if days <= 0 {
		days = defaultVolumeDays
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	return s.store.DailyVolume(ctx, since)
}

func (s *TransferQueryService) LargeTransfers(ctx context.Context, q cqrs.LargeTransfersQuery) ([]ledger.Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLargeLimit
	}
	return s.store.LargeTransfers(ctx, q.MinAmount, limit)
}
