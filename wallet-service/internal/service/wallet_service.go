// Package service implements the wallet operations consumed by users
// (create, top-up, reads) and by the transfer orchestrator (debit, credit).
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/events"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
	"github.com/andreecahyadi/digital-bank-system/shared/utils"
)

const defaultCurrency = "USD"

// Repository is the wallet persistence contract. Debit must be atomic per
// account: concurrent debits can never jointly overdraw a wallet.
type Repository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
	WalletsAboveBalance(ctx context.Context, minBalance decimal.Decimal) ([]models.Wallet, error)
	Statistics(ctx context.Context) (*models.WalletStatistics, error)
}

// ViewCache is the read-model cache contract, satisfied by the generic
// Redis ViewCache.
type ViewCache interface {
	Get(ctx context.Context, key string) (*models.WalletView, bool)
	Set(ctx context.Context, key string, value *models.WalletView)
	Delete(ctx context.Context, key string)
}

// Publisher is the subset of the events publisher this service uses.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type WalletService struct {
	repo      Repository
	cache     ViewCache
	publisher Publisher
}

func NewWalletService(repo Repository, cache ViewCache, publisher Publisher) *WalletService {
	return &WalletService{repo: repo, cache: cache, publisher: publisher}
}

func viewKey(userID string) string {
	return "wallet:view:" + userID
}

func (s *WalletService) CreateWallet(ctx context.Context, cmd cqrs.CreateWalletCommand) (*models.Wallet, error) {
	if cmd.UserID == "" {
		return nil, apperr.New(apperr.KindValidation, "userId is required")
	}
	currency := cmd.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	now := time.Now().UTC()
	wallet := &models.Wallet{
		ID:        utils.GenerateID("wal"),
		UserID:    cmd.UserID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Status:    models.WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return nil, err
	}
	s.publish(ctx, events.WalletCreated, events.WalletCreatedEvent{
		WalletID: wallet.ID,
		UserID:   wallet.UserID,
		Currency: wallet.Currency,
	})
	return wallet, nil
}

func (s *WalletService) GetWallet(ctx context.Context, q cqrs.GetWalletQuery) (*models.WalletView, error) {
	if view, ok := s.cache.Get(ctx, viewKey(q.UserID)); ok {
		return view, nil
	}
	wallet, err := s.repo.GetByUserID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	view := walletToView(wallet)
	s.cache.Set(ctx, viewKey(q.UserID), view)
	return view, nil
}

// GetBalance always reads through to the store: the transfer orchestrator
// uses this as its advisory check and must never see a stale cached value.
func (s *WalletService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

func (s *WalletService) TopUp(ctx context.Context, cmd cqrs.TopUpWalletCommand) (*models.WalletView, error) {
	if err := validAmount(cmd.Amount); err != nil {
		return nil, err
	}
	balance, err := s.repo.Credit(ctx, cmd.UserID, cmd.Amount)
	if err != nil {
		return nil, err
	}
	s.afterBalanceChange(ctx, events.WalletToppedUp, cmd.UserID, balance, cmd.Amount)

	wallet, err := s.repo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	return walletToView(wallet), nil
}

// Debit is the authoritative balance mutation consumed by the transfer
// orchestrator. Sufficiency is re-checked atomically inside the repository.
func (s *WalletService) Debit(ctx context.Context, cmd cqrs.DebitWalletCommand) error {
	if err := validAmount(cmd.Amount); err != nil {
		return err
	}
	balance, err := s.repo.Debit(ctx, cmd.UserID, cmd.Amount)
	if err != nil {
		return err
	}
	s.afterBalanceChange(ctx, events.BalanceUpdated, cmd.UserID, balance, cmd.Amount.Neg())
	return nil
}

func (s *WalletService) Credit(ctx context.Context, cmd cqrs.CreditWalletCommand) error {
	if err := validAmount(cmd.Amount); err != nil {
		return err
	}
	balance, err := s.repo.Credit(ctx, cmd.UserID, cmd.Amount)
	if err != nil {
		return err
	}
	s.afterBalanceChange(ctx, events.BalanceUpdated, cmd.UserID, balance, cmd.Amount)
	return nil
}

func (s *WalletService) WealthyWallets(ctx context.Context, q cqrs.WealthyWalletsQuery) ([]models.Wallet, error) {
	return s.repo.WalletsAboveBalance(ctx, q.MinBalance)
}

func (s *WalletService) Statistics(ctx context.Context) (*models.WalletStatistics, error) {
	return s.repo.Statistics(ctx)
}

// HandleTransferEvent invalidates cached views for both participants of a
// finalized transfer. The write path already invalidates on debit/credit;
// this covers consumers on other instances sharing the cache.
func (s *WalletService) HandleTransferEvent(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to re-marshal event data: %w", err)
	}
	var finalized events.TransferFinalizedEvent
	if err := json.Unmarshal(data, &finalized); err != nil {
		return fmt.Errorf("failed to unmarshal transfer event: %w", err)
	}
	s.cache.Delete(ctx, viewKey(finalized.SenderID))
	s.cache.Delete(ctx, viewKey(finalized.ReceiverID))
	return nil
}

func (s *WalletService) afterBalanceChange(ctx context.Context, eventType, userID string, newBalance, change decimal.Decimal) {
	s.cache.Delete(ctx, viewKey(userID))
	s.publish(ctx, eventType, events.BalanceUpdatedEvent{
		UserID:     userID,
		NewBalance: newBalance,
		Change:     change,
	})
}

func (s *WalletService) publish(ctx context.Context, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.WalletEventsStream, eventType, data); err != nil {
		slog.Error("failed to publish wallet event", "type", eventType, "error", err)
	}
}

func validAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperr.New(apperr.KindValidation, "amount must be positive")
	}
	return nil
}

func walletToView(wallet *models.Wallet) *models.WalletView {
	return &models.WalletView{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Balance:   wallet.Balance,
		Currency:  wallet.Currency,
		Status:    wallet.Status,
		UpdatedAt: wallet.UpdatedAt,
	}
}
