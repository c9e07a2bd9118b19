package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
)

// ---- mock implementation ----

type mockWalletOperator struct {
	createFn    func(context.Context, cqrs.CreateWalletCommand) (*models.Wallet, error)
	getFn       func(context.Context, cqrs.GetWalletQuery) (*models.WalletView, error)
	balanceFn   func(context.Context, string) (decimal.Decimal, error)
	topUpFn     func(context.Context, cqrs.TopUpWalletCommand) (*models.WalletView, error)
	debitFn     func(context.Context, cqrs.DebitWalletCommand) error
	creditFn    func(context.Context, cqrs.CreditWalletCommand) error
	wealthyFn   func(context.Context, cqrs.WealthyWalletsQuery) ([]models.Wallet, error)
	statisticFn func(context.Context) (*models.WalletStatistics, error)
}

func (m *mockWalletOperator) CreateWallet(ctx context.Context, cmd cqrs.CreateWalletCommand) (*models.Wallet, error) {
	if m.createFn != nil {
		return m.createFn(ctx, cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockWalletOperator) GetWallet(ctx context.Context, q cqrs.GetWalletQuery) (*models.WalletView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockWalletOperator) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if m.balanceFn != nil {
		return m.balanceFn(ctx, userID)
	}
	return decimal.Zero, fmt.Errorf("not configured")
}
func (m *mockWalletOperator) TopUp(ctx context.Context, cmd cqrs.TopUpWalletCommand) (*models.WalletView, error) {
	if m.topUpFn != nil {
		return m.topUpFn(ctx, cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockWalletOperator) Debit(ctx context.Context, cmd cqrs.DebitWalletCommand) error {
	if m.debitFn != nil {
		return m.debitFn(ctx, cmd)
	}
	return fmt.Errorf("not configured")
}
func (m *mockWalletOperator) Credit(ctx context.Context, cmd cqrs.CreditWalletCommand) error {
	if m.creditFn != nil {
		return m.creditFn(ctx, cmd)
	}
	return fmt.Errorf("not configured")
}
func (m *mockWalletOperator) WealthyWallets(ctx context.Context, q cqrs.WealthyWalletsQuery) ([]models.Wallet, error) {
	if m.wealthyFn != nil {
		return m.wealthyFn(ctx, q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockWalletOperator) Statistics(ctx context.Context) (*models.WalletStatistics, error) {
	if m.statisticFn != nil {
		return m.statisticFn(ctx)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newWalletTestRouter(op WalletOperator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWalletHandler(op)
	r.GET("/api/wallets/balance/:userId", h.GetBalance)
	r.POST("/api/wallets/:userId/debit", h.Debit)
	r.POST("/api/wallets/:userId/credit", h.Credit)
	api := r.Group("/api/wallets")
	api.POST("", h.CreateWallet)
	api.POST("/topup", h.TopUp)
	api.GET("/user/:userId", h.GetWallet)
	api.GET("/wealthy", h.WealthyWallets)
	api.GET("/statistics", h.Statistics)
	return r
}

func walletDoRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var testWallet = &models.Wallet{
	ID: "wal-001", UserID: "usr-001",
	Balance: decimal.Zero, Currency: "USD", Status: models.WalletActive,
	CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
}

// ---- tests ----

func TestCreateWalletEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(context.Context, cqrs.CreateWalletCommand) (*models.Wallet, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: map[string]string{"userId": "usr-001"},
			createFn: func(_ context.Context, cmd cqrs.CreateWalletCommand) (*models.Wallet, error) {
				return testWallet, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "conflict - wallet already exists",
			body: map[string]string{"userId": "usr-001"},
			createFn: func(_ context.Context, cmd cqrs.CreateWalletCommand) (*models.Wallet, error) {
				return nil, apperr.New(apperr.KindConflict, "wallet already exists for this user")
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "bad request - missing userId",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newWalletTestRouter(&mockWalletOperator{createFn: tt.createFn})
			w := walletDoRequest(router, http.MethodPost, "/api/wallets", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d (body %s)", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDebitEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		debitFn        func(context.Context, cqrs.DebitWalletCommand) error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "success",
			debitFn:        func(_ context.Context, cmd cqrs.DebitWalletCommand) error { return nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "conflict - insufficient funds",
			debitFn: func(_ context.Context, cmd cqrs.DebitWalletCommand) error {
				return apperr.New(apperr.KindInsufficientFunds, "insufficient funds")
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name: "conflict - frozen wallet",
			debitFn: func(_ context.Context, cmd cqrs.DebitWalletCommand) error {
				return apperr.New(apperr.KindInactiveAccount, "wallet is not active")
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "WALLET_INACTIVE",
		},
		{
			name: "not found",
			debitFn: func(_ context.Context, cmd cqrs.DebitWalletCommand) error {
				return apperr.New(apperr.KindNotFound, "wallet not found")
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newWalletTestRouter(&mockWalletOperator{debitFn: tt.debitFn})
			w := walletDoRequest(router, http.MethodPost, "/api/wallets/usr-001/debit",
				map[string]string{"amount": "30"})

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d (body %s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedCode != "" {
				var resp map[string]interface{}
				json.Unmarshal(w.Body.Bytes(), &resp)
				if resp["code"] != tt.expectedCode {
					t.Errorf("expected code %s, got %v", tt.expectedCode, resp["code"])
				}
			}
		})
	}
}

func TestGetBalanceEndpoint(t *testing.T) {
	op := &mockWalletOperator{
		balanceFn: func(_ context.Context, userID string) (decimal.Decimal, error) {
			if userID == "usr-ghost" {
				return decimal.Zero, apperr.New(apperr.KindNotFound, "wallet not found")
			}
			return decimal.RequireFromString("42.50"), nil
		},
	}
	router := newWalletTestRouter(op)

	w := walletDoRequest(router, http.MethodGet, "/api/wallets/balance/usr-001", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "42.5") {
		t.Errorf("expected balance in body, got %s", w.Body.String())
	}

	w = walletDoRequest(router, http.MethodGet, "/api/wallets/balance/usr-ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestWealthyWalletsEndpoint(t *testing.T) {
	var captured cqrs.WealthyWalletsQuery
	op := &mockWalletOperator{
		wealthyFn: func(_ context.Context, q cqrs.WealthyWalletsQuery) ([]models.Wallet, error) {
			captured = q
			return nil, nil
		},
	}
	router := newWalletTestRouter(op)

	w := walletDoRequest(router, http.MethodGet, "/api/wallets/wealthy?minBalance=2500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !captured.MinBalance.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("expected minBalance forwarded, got %s", captured.MinBalance)
	}
	if !strings.Contains(w.Body.String(), `"wallets":[]`) {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}

	w = walletDoRequest(router, http.MethodGet, "/api/wallets/wealthy?minBalance=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad minBalance, got %d", w.Code)
	}
}
