package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
)

// WalletOperator defines the operations used by WalletHandler.
type WalletOperator interface {
	CreateWallet(ctx context.Context, cmd cqrs.CreateWalletCommand) (*models.Wallet, error)
	GetWallet(ctx context.Context, q cqrs.GetWalletQuery) (*models.WalletView, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	TopUp(ctx context.Context, cmd cqrs.TopUpWalletCommand) (*models.WalletView, error)
	Debit(ctx context.Context, cmd cqrs.DebitWalletCommand) error
	Credit(ctx context.Context, cmd cqrs.CreditWalletCommand) error
	WealthyWallets(ctx context.Context, q cqrs.WealthyWalletsQuery) ([]models.Wallet, error)
	Statistics(ctx context.Context) (*models.WalletStatistics, error)
}

type WalletHandler struct {
	wallets WalletOperator
}

func NewWalletHandler(wallets WalletOperator) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type CreateWalletRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Currency string `json:"currency"`
}

type TopUpRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// AmountRequest is the body of the debit and credit endpoints; the user is
// addressed in the path.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	wallet, err := h.wallets.CreateWallet(c.Request.Context(), cqrs.CreateWalletCommand{
		UserID:   req.UserID,
		Currency: req.Currency,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.wallets.TopUp(c.Request.Context(), cqrs.TopUpWalletCommand{
		UserID: req.UserID,
		Amount: req.Amount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	view, err := h.wallets.GetWallet(c.Request.Context(), cqrs.GetWalletQuery{
		UserID: c.Param("userId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	balance, err := h.wallets.GetBalance(c.Request.Context(), c.Param("userId"))
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *WalletHandler) Debit(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.wallets.Debit(c.Request.Context(), cqrs.DebitWalletCommand{
		UserID: c.Param("userId"),
		Amount: req.Amount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *WalletHandler) Credit(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.wallets.Credit(c.Request.Context(), cqrs.CreditWalletCommand{
		UserID: c.Param("userId"),
		Amount: req.Amount,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *WalletHandler) WealthyWallets(c *gin.Context) {
	minBalance := decimal.NewFromInt(1000)
	if raw := c.Query("minBalance"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid minBalance")
			return
		}
		minBalance = parsed
	}

	wallets, err := h.wallets.WealthyWallets(c.Request.Context(), cqrs.WealthyWalletsQuery{
		MinBalance: minBalance,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

func (h *WalletHandler) Statistics(c *gin.Context) {
	stats, err := h.wallets.Statistics(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
