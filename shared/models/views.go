package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserView is the read-optimised projection of a user.
// It never exposes PINHash.
type UserView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	PhoneNumber string    `json:"phoneNumber"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdTimestamp"`
}

// WalletView is the read-optimised projection of a wallet, cached in Redis
// and invalidated whenever the balance or status changes.
type WalletView struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

// WalletStatistics is the typed shape of the wallet statistics endpoint.
type WalletStatistics struct {
	TotalActiveBalance decimal.Decimal  `json:"totalActiveBalance"`
	WalletsByStatus    map[string]int64 `json:"walletsByStatus"`
}
