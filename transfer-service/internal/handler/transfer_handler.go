package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
	"github.com/andreecahyadi/digital-bank-system/transfer-service/internal/ledger"
)

// TransferCommander defines the write-side operations used by TransferHandler.
type TransferCommander interface {
	Transfer(ctx context.Context, cmd cqrs.TransferFundsCommand) (*ledger.Entry, error)
}

// TransferQuerier defines the read-side operations used by TransferHandler.
type TransferQuerier interface {
	History(ctx context.Context, q cqrs.TransferHistoryQuery) ([]ledger.Entry, error)
	Summary(ctx context.Context, q cqrs.TransferSummaryQuery) (*ledger.Summary, error)
	TopCounterparties(ctx context.Context, q cqrs.TopCounterpartiesQuery) ([]ledger.Counterparty, error)
	DailyVolume(ctx context.Context, q cqrs.DailyVolumeQuery) ([]ledger.DayVolume, error)
	LargeTransfers(ctx context.Context, q cqrs.LargeTransfersQuery) ([]ledger.Entry, error)
}

type TransferHandler struct {
	commands TransferCommander
	queries  TransferQuerier
}

func NewTransferHandler(commands TransferCommander, queries TransferQuerier) *TransferHandler {
	return &TransferHandler{commands: commands, queries: queries}
}

type CreateTransferRequest struct {
	SenderID    string          `json:"senderId" validate:"required"`
	ReceiverID  string          `json:"receiverId" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Currency    string          `json:"currency"`
	PIN         string          `json:"pin" validate:"required"`
	Description string          `json:"description"`
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	entry, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferFundsCommand{
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PIN:            req.PIN,
		Description:    req.Description,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		// Insufficient funds is a well-formed but unprocessable request at
		// this boundary, unlike the wallet service's 409.
		if apperr.Is(err, apperr.KindInsufficientFunds) {
			c.JSON(http.StatusUnprocessableEntity, middleware.ErrorResponse{
				Message: err.Error(),
				Code:    apperr.KindInsufficientFunds.Code(),
			})
			return
		}
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *TransferHandler) GetHistory(c *gin.Context) {
	entries, err := h.queries.History(c.Request.Context(), cqrs.TransferHistoryQuery{
		UserID: c.Param("userId"),
		Status: c.Query("status"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entriesOrEmpty(entries)})
}

func (h *TransferHandler) GetSummary(c *gin.Context) {
	days, ok := intQuery(c, "days", 30)
	if !ok {
		return
	}
	summary, err := h.queries.Summary(c.Request.Context(), cqrs.TransferSummaryQuery{
		UserID: c.Param("userId"),
		Days:   days,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *TransferHandler) GetTopCounterparties(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 5)
	if !ok {
		return
	}
	counterparties, err := h.queries.TopCounterparties(c.Request.Context(), cqrs.TopCounterpartiesQuery{
		UserID: c.Param("userId"),
		Limit:  limit,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if counterparties == nil {
		counterparties = []ledger.Counterparty{}
	}
	c.JSON(http.StatusOK, gin.H{"counterparties": counterparties})
}

func (h *TransferHandler) GetDailyVolume(c *gin.Context) {
	days, ok := intQuery(c, "days", 7)
	if !ok {
		return
	}
	volume, err := h.queries.DailyVolume(c.Request.Context(), cqrs.DailyVolumeQuery{Days: days})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if volume == nil {
		volume = []ledger.DayVolume{}
	}
	c.JSON(http.StatusOK, gin.H{"volume": volume})
}

func (h *TransferHandler) GetLargeTransfers(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 10)
	if !ok {
		return
	}
	minAmount := decimal.NewFromInt(1000)
	if raw := c.Query("minAmount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid minAmount")
			return
		}
		minAmount = parsed
	}
	entries, err := h.queries.LargeTransfers(c.Request.Context(), cqrs.LargeTransfersQuery{
		MinAmount: minAmount,
		Limit:     limit,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entriesOrEmpty(entries)})
}

func entriesOrEmpty(entries []ledger.Entry) []ledger.Entry {
	if entries == nil {
		return []ledger.Entry{}
	}
	return entries
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return n, true
}
