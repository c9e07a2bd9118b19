package cqrs

import "github.com/shopspring/decimal"

type RegisterUserCommand struct {
	Email       string
	FullName    string
	PhoneNumber string
	PIN         string
}

type LoginCommand struct {
	Email string
	PIN   string
}

type CreateWalletCommand struct {
	UserID   string
	Currency string
}

type TopUpWalletCommand struct {
	UserID string
	Amount decimal.Decimal
}

type DebitWalletCommand struct {
	UserID string
	Amount decimal.Decimal
}

type CreditWalletCommand struct {
	UserID string
	Amount decimal.Decimal
}

// TransferFundsCommand is the input of the transfer orchestrator.
// IdempotencyKey is optional; when a caller reuses one, the orchestrator
// returns the entry minted by the first attempt instead of creating another.
type TransferFundsCommand struct {
	SenderID       string
	ReceiverID     string
	Amount         decimal.Decimal
	Currency       string
	PIN            string
	Description    string
	IdempotencyKey string
}
