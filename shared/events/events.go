package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	UserRegistered = "user.registered"

	WalletCreated  = "wallet.created"
	WalletToppedUp = "wallet.topped_up"
	BalanceUpdated = "balance.updated"

	TransferCompleted = "transfer.completed"
	TransferFailed    = "transfer.failed"
	TransferReversed  = "transfer.reversed"
)

// Stream names
const (
	UserEventsStream     = "user.events"
	WalletEventsStream   = "wallet.events"
	TransferEventsStream = "transfer.events"
)

// Event is the envelope written to the Redis stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type WalletCreatedEvent struct {
	WalletID string `json:"walletId"`
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
}

type BalanceUpdatedEvent struct {
	UserID     string          `json:"userId"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Change     decimal.Decimal `json:"change"`
}

// TransferFinalizedEvent is published for every terminal ledger transition.
// The event type carries the outcome; the payload is identical for all three.
type TransferFinalizedEvent struct {
	Reference  string          `json:"reference"`
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
}
