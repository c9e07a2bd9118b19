package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
)

// WalletRepository owns all wallet state in PostgreSQL. Debit and Credit are
// single conditional UPDATEs: the row either mutates atomically or not at
// all, which is what gives concurrent transfers their no-overdraw guarantee.
type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, balance, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		wallet.ID, wallet.UserID, wallet.Balance, wallet.Currency,
		wallet.Status, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.New(apperr.KindConflict, "wallet already exists for this user")
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	query := `
		SELECT id, user_id, balance, currency, status, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	var wallet models.Wallet
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.Currency,
		&wallet.Status, &wallet.CreatedAt, &wallet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// Debit subtracts amount in one conditional UPDATE. The WHERE clause is the
// authoritative sufficiency check: under concurrent debits the row lock
// serialises them and the losing debit simply matches zero rows.
func (r *WalletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = $3
		WHERE user_id = $1 AND status = 'ACTIVE' AND balance >= $2
		RETURNING balance
	`
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID, amount, time.Now().UTC()).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, r.classifyRejectedDebit(ctx, userID, amount)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return balance, nil
}

// classifyRejectedDebit re-reads the wallet to report why the conditional
// update matched nothing. The re-read races with other writers, but all
// three outcomes were true at some point during the call, and the debit
// itself has already safely not happened.
func (r *WalletRepository) classifyRejectedDebit(ctx context.Context, userID string, amount decimal.Decimal) error {
	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if wallet.Status != models.WalletActive {
		return apperr.New(apperr.KindInactiveAccount, "wallet is not active")
	}
	return apperr.Newf(apperr.KindInsufficientFunds,
		"insufficient funds: balance %s, requested %s", wallet.Balance, amount)
}

func (r *WalletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $2, updated_at = $3
		WHERE user_id = $1 AND status = 'ACTIVE'
		RETURNING balance
	`
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID, amount, time.Now().UTC()).Scan(&balance)
	if err == sql.ErrNoRows {
		wallet, getErr := r.GetByUserID(ctx, userID)
		if getErr != nil {
			return decimal.Zero, getErr
		}
		if wallet.Status != models.WalletActive {
			return decimal.Zero, apperr.New(apperr.KindInactiveAccount, "wallet is not active")
		}
		return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet not found")
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return balance, nil
}

func (r *WalletRepository) WalletsAboveBalance(ctx context.Context, minBalance decimal.Decimal) ([]models.Wallet, error) {
	query := `
		SELECT id, user_id, balance, currency, status, created_at, updated_at
		FROM wallets
		WHERE balance >= $1 AND status = 'ACTIVE'
		ORDER BY balance DESC
	`
	rows, err := r.db.QueryContext(ctx, query, minBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var wallet models.Wallet
		if err := rows.Scan(
			&wallet.ID, &wallet.UserID, &wallet.Balance, &wallet.Currency,
			&wallet.Status, &wallet.CreatedAt, &wallet.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

func (r *WalletRepository) Statistics(ctx context.Context) (*models.WalletStatistics, error) {
	stats := &models.WalletStatistics{
		TotalActiveBalance: decimal.Zero,
		WalletsByStatus:    make(map[string]int64),
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM wallets WHERE status = 'ACTIVE'`,
	).Scan(&stats.TotalActiveBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to sum active balances: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM wallets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count wallets by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan wallet count: %w", err)
		}
		stats.WalletsByStatus[status] = count
	}
	return stats, rows.Err()
}
