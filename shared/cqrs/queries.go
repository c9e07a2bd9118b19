package cqrs

import "github.com/shopspring/decimal"

// ---------- User queries ----------

type GetUserQuery struct {
	UserID string
}

type GetUserByEmailQuery struct {
	Email string
}

type SearchUsersQuery struct {
	Keyword string
}

type RecentUsersQuery struct {
	Days int
}

type VerifyPINQuery struct {
	UserID string
	PIN    string
}

// ---------- Wallet queries ----------

type GetWalletQuery struct {
	UserID string
}

type WealthyWalletsQuery struct {
	MinBalance decimal.Decimal
}

// ---------- Transfer queries ----------

// TransferHistoryQuery lists every transfer a user participated in,
// newest first. Status is optional; empty means all statuses.
type TransferHistoryQuery struct {
	UserID string
	Status string
}

// TransferSummaryQuery aggregates completed transfers over a rolling window.
type TransferSummaryQuery struct {
	UserID string
	Days   int
}

type TopCounterpartiesQuery struct {
	UserID string
	Limit  int
}

type DailyVolumeQuery struct {
	Days int
}

type LargeTransfersQuery struct {
	MinAmount decimal.Decimal
	Limit     int
}
