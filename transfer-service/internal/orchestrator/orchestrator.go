// Package orchestrator sequences a funds transfer across the identity
// service, the wallet service and the ledger. There is no shared transaction
// boundary between the three, so the ordering here is the consistency model:
// a PENDING ledger entry is durable before any money moves, and every path
// after that finalizes the entry to a terminal status.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/events"
	"github.com/andreecahyadi/digital-bank-system/transfer-service/internal/client"
	"github.com/andreecahyadi/digital-bank-system/transfer-service/internal/ledger"
)

const defaultCurrency = "USD"

// ReferenceGenerator mints ledger references.
type ReferenceGenerator interface {
	Next() string
}

// Publisher is the subset of the events publisher the orchestrator needs.
// Event publication is best-effort; a publish failure never fails a transfer.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// Service drives the transfer protocol. It holds no per-request state and is
// safe for unbounded concurrent use; per-account atomicity lives in the
// wallet service, not here.
type Service struct {
	ledger    ledger.Store
	identity  client.IdentityClient
	wallets   client.WalletClient
	refs      ReferenceGenerator
	publisher Publisher
	now       func() time.Time
}

func NewService(store ledger.Store, identity client.IdentityClient, wallets client.WalletClient, refs ReferenceGenerator, publisher Publisher) *Service {
	return &Service{
		ledger:    store,
		identity:  identity,
		wallets:   wallets,
		refs:      refs,
		publisher: publisher,
		now:       time.Now,
	}
}

// Transfer runs the protocol:
//
//  1. validate the request (no side effects)
//  2. both parties must exist
//  3. the sender's PIN must verify
//  4. advisory balance check
//  5. persist a PENDING ledger entry
//  6. debit the sender (authoritative sufficiency check, atomic per account)
//  7. credit the receiver; on failure, credit the sender back
//  8. finalize the entry to COMPLETED, FAILED or REVERSED
//
// Steps 2-4 are free of side effects, so an UpstreamUnavailable there is
// safely retriable by the caller. From step 5 on, a reused idempotency key
// resolves to the entry minted here instead of creating a second one.
func (s *Service) Transfer(ctx context.Context, cmd cqrs.TransferFundsCommand) (*ledger.Entry, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, err := s.ledger.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
	}

	if err := s.checkParticipants(ctx, cmd); err != nil {
		return nil, err
	}

	valid, err := s.identity.VerifyPIN(ctx, cmd.SenderID, cmd.PIN)
	if err != nil {
		return nil, err
	}
	if !valid {
		// Deliberately vague: don't reveal whether the user or the PIN was
		// the failing factor.
		return nil, apperr.New(apperr.KindUnauthorized, "invalid PIN")
	}

	// Advisory only. The balance can change between this read and the debit;
	// the debit re-checks atomically.
	balance, err := s.wallets.Balance(ctx, cmd.SenderID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(cmd.Amount) {
		return nil, apperr.New(apperr.KindInsufficientFunds, "insufficient funds")
	}

	currency := cmd.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	entry := &ledger.Entry{
		Reference:      s.refs.Next(),
		IdempotencyKey: cmd.IdempotencyKey,
		SenderID:       cmd.SenderID,
		ReceiverID:     cmd.ReceiverID,
		Amount:         cmd.Amount,
		Currency:       currency,
		Type:           ledger.TransferType,
		Status:         ledger.StatusPending,
		Description:    cmd.Description,
		CreatedAt:      s.now().UTC(),
	}

	// The PENDING write must be durable before any balance mutation: a crash
	// after this point still leaves an auditable record.
	if err := s.ledger.Create(ctx, entry); err != nil {
		if apperr.Is(err, apperr.KindConflict) && cmd.IdempotencyKey != "" {
			// Lost a race with a concurrent attempt using the same key.
			if existing, lookupErr := s.ledger.GetByIdempotencyKey(ctx, cmd.IdempotencyKey); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	return s.moveFunds(ctx, entry)
}

// moveFunds performs the balance mutations and finalizes the entry. Once the
// debit has been issued the transfer must reach a terminal ledger state, so
// everything from here on runs detached from the caller's cancellation.
func (s *Service) moveFunds(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	opCtx := context.WithoutCancel(ctx)

	if err := s.wallets.Debit(opCtx, entry.SenderID, entry.Amount); err != nil {
		// No money moved. FAILED is consistent.
		s.finalize(opCtx, entry, ledger.StatusFailed)
		return nil, err
	}

	if err := s.wallets.Credit(opCtx, entry.ReceiverID, entry.Amount); err != nil {
		return nil, s.compensate(opCtx, entry, err)
	}

	s.finalize(opCtx, entry, ledger.StatusCompleted)
	return entry, nil
}

// compensate handles the debited-but-not-credited gap: credit the sender
// back. Success finalizes REVERSED (no money moved, net); failure finalizes
// FAILED and surfaces InconsistentState so operators can tell "no money
// moved" apart from "money left the sender and went nowhere".
func (s *Service) compensate(ctx context.Context, entry *ledger.Entry, creditErr error) error {
	if err := s.wallets.Credit(ctx, entry.SenderID, entry.Amount); err != nil {
		slog.Error("compensation failed, sender remains debited",
			"reference", entry.Reference, "sender", entry.SenderID,
			"amount", entry.Amount, "creditError", creditErr, "compensationError", err)
		s.finalize(ctx, entry, ledger.StatusFailed)
		return apperr.Wrap(apperr.KindInconsistentState,
			"credit failed and compensation failed; sender remains debited", creditErr)
	}

	s.finalize(ctx, entry, ledger.StatusReversed)
	return apperr.Wrap(apperr.KindOf(creditErr), "transfer reversed: credit to receiver failed", creditErr)
}

// finalize is best-effort: a finalize failure is logged, never propagated,
// so it cannot mask the outcome of the transfer itself. The conditional
// update in the store guarantees at most one terminal write wins.
func (s *Service) finalize(ctx context.Context, entry *ledger.Entry, status ledger.Status) {
	completedAt := s.now().UTC()
	if err := s.ledger.Finalize(ctx, entry.Reference, status, completedAt); err != nil {
		slog.Error("failed to finalize ledger entry",
			"reference", entry.Reference, "status", status, "error", err)
		return
	}
	entry.Status = status
	entry.CompletedAt = &completedAt
	s.publishFinalized(ctx, entry)
}

func (s *Service) publishFinalized(ctx context.Context, entry *ledger.Entry) {
	if s.publisher == nil {
		return
	}
	eventType := events.TransferFailed
	switch entry.Status {
	case ledger.StatusCompleted:
		eventType = events.TransferCompleted
	case ledger.StatusReversed:
		eventType = events.TransferReversed
	}
	err := s.publisher.Publish(ctx, events.TransferEventsStream, eventType, events.TransferFinalizedEvent{
		Reference:  entry.Reference,
		SenderID:   entry.SenderID,
		ReceiverID: entry.ReceiverID,
		Amount:     entry.Amount,
		Currency:   entry.Currency,
		Status:     string(entry.Status),
	})
	if err != nil {
		slog.Error("failed to publish transfer event", "reference", entry.Reference, "error", err)
	}
}

func (s *Service) checkParticipants(ctx context.Context, cmd cqrs.TransferFundsCommand) error {
	exists, err := s.identity.Exists(ctx, cmd.SenderID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Newf(apperr.KindNotFound, "sender %s not found", cmd.SenderID)
	}

	exists, err = s.identity.Exists(ctx, cmd.ReceiverID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Newf(apperr.KindNotFound, "receiver %s not found", cmd.ReceiverID)
	}
	return nil
}

func validate(cmd cqrs.TransferFundsCommand) error {
	if cmd.SenderID == "" || cmd.ReceiverID == "" {
		return apperr.New(apperr.KindValidation, "sender and receiver are required")
	}
	if cmd.SenderID == cmd.ReceiverID {
		return apperr.New(apperr.KindValidation, "sender and receiver must differ")
	}
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		return apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if cmd.PIN == "" {
		return apperr.New(apperr.KindValidation, "PIN is required")
	}
	return nil
}
