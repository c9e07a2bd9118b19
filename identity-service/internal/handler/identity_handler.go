package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
	"github.com/andreecahyadi/digital-bank-system/shared/utils"
)

// IdentityOperator defines the operations used by IdentityHandler.
type IdentityOperator interface {
	Register(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error)
	Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error)
	GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error)
	GetUserByEmail(ctx context.Context, q cqrs.GetUserByEmailQuery) (*models.UserView, error)
	Exists(ctx context.Context, userID string) (bool, error)
	VerifyPIN(ctx context.Context, q cqrs.VerifyPINQuery) (bool, error)
	SearchUsers(ctx context.Context, q cqrs.SearchUsersQuery) ([]models.UserView, error)
	ActiveUsers(ctx context.Context) ([]models.UserView, error)
	RecentUsers(ctx context.Context, q cqrs.RecentUsersQuery) ([]models.UserView, error)
}

type IdentityHandler struct {
	identity IdentityOperator
}

func NewIdentityHandler(identity IdentityOperator) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"fullName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	PIN   string `json:"pin" validate:"required"`
}

type VerifyPINRequest struct {
	UserID string `json:"userId" validate:"required"`
	PIN    string `json:"pin" validate:"required"`
}

func (h *IdentityHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.identity.Register(c.Request.Context(), cqrs.RegisterUserCommand{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		PIN:         req.PIN,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *IdentityHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.identity.Login(c.Request.Context(), cqrs.LoginCommand{
		Email: req.Email,
		PIN:   req.PIN,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *IdentityHandler) GetUser(c *gin.Context) {
	view, err := h.identity.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID: c.Param("userId"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *IdentityHandler) GetUserByEmail(c *gin.Context) {
	view, err := h.identity.GetUserByEmail(c.Request.Context(), cqrs.GetUserByEmailQuery{
		Email: c.Param("email"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Exists always answers 200 with a boolean body. The transfer service treats
// a non-2xx here as the collaborator being unavailable, not as "no user".
func (h *IdentityHandler) Exists(c *gin.Context) {
	userID := c.Param("userId")
	if !utils.ValidateUserID(userID) {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}

	exists, err := h.identity.Exists(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *IdentityHandler) VerifyPIN(c *gin.Context) {
	var req VerifyPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	valid, err := h.identity.VerifyPIN(c.Request.Context(), cqrs.VerifyPINQuery{
		UserID: req.UserID,
		PIN:    req.PIN,
	})
	if err != nil {
		// An unknown or suspended user answers the same as a wrong PIN so
		// the response never reveals which factor failed.
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindForbidden) {
			c.JSON(http.StatusOK, gin.H{"valid": false})
			return
		}
		middleware.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *IdentityHandler) SearchUsers(c *gin.Context) {
	views, err := h.identity.SearchUsers(c.Request.Context(), cqrs.SearchUsersQuery{
		Keyword: c.Query("keyword"),
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if views == nil {
		views = []models.UserView{}
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

func (h *IdentityHandler) ActiveUsers(c *gin.Context) {
	views, err := h.identity.ActiveUsers(c.Request.Context())
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if views == nil {
		views = []models.UserView{}
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}

func (h *IdentityHandler) RecentUsers(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid days")
			return
		}
		days = parsed
	}

	views, err := h.identity.RecentUsers(c.Request.Context(), cqrs.RecentUsersQuery{Days: days})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if views == nil {
		views = []models.UserView{}
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}
