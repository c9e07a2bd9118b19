package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
)

// MemoryWalletRepository is an in-memory wallet store for tests and local
// development. A single mutex makes debit check-and-subtract atomic, giving
// the same no-overdraw guarantee the conditional UPDATE gives in Postgres.
type MemoryWalletRepository struct {
	mu      sync.Mutex
	wallets map[string]*models.Wallet // keyed by user ID
}

func NewMemoryWalletRepository() *MemoryWalletRepository {
	return &MemoryWalletRepository{
		wallets: make(map[string]*models.Wallet),
	}
}

func (r *MemoryWalletRepository) Create(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.wallets[wallet.UserID]; exists {
		return apperr.New(apperr.KindConflict, "wallet already exists for this user")
	}
	stored := *wallet
	r.wallets[wallet.UserID] = &stored
	return nil
}

func (r *MemoryWalletRepository) GetByUserID(_ context.Context, userID string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return nil, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	copied := *wallet
	return &copied, nil
}

func (r *MemoryWalletRepository) Debit(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if wallet.Status != models.WalletActive {
		return decimal.Zero, apperr.New(apperr.KindInactiveAccount, "wallet is not active")
	}
	if wallet.Balance.LessThan(amount) {
		return decimal.Zero, apperr.Newf(apperr.KindInsufficientFunds,
			"insufficient funds: balance %s, requested %s", wallet.Balance, amount)
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.UpdatedAt = time.Now().UTC()
	return wallet.Balance, nil
}

func (r *MemoryWalletRepository) Credit(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, exists := r.wallets[userID]
	if !exists {
		return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if wallet.Status != models.WalletActive {
		return decimal.Zero, apperr.New(apperr.KindInactiveAccount, "wallet is not active")
	}
	wallet.Balance = wallet.Balance.Add(amount)
	wallet.UpdatedAt = time.Now().UTC()
	return wallet.Balance, nil
}

func (r *MemoryWalletRepository) WalletsAboveBalance(_ context.Context, minBalance decimal.Decimal) ([]models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Wallet
	for _, wallet := range r.wallets {
		if wallet.Status == models.WalletActive && wallet.Balance.GreaterThanOrEqual(minBalance) {
			result = append(result, *wallet)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Balance.GreaterThan(result[j].Balance)
	})
	return result, nil
}

func (r *MemoryWalletRepository) Statistics(_ context.Context) (*models.WalletStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &models.WalletStatistics{
		TotalActiveBalance: decimal.Zero,
		WalletsByStatus:    make(map[string]int64),
	}
	for _, wallet := range r.wallets {
		stats.WalletsByStatus[wallet.Status]++
		if wallet.Status == models.WalletActive {
			stats.TotalActiveBalance = stats.TotalActiveBalance.Add(wallet.Balance)
		}
	}
	return stats, nil
}
