// Package service implements registration, login and the verification
// operations the transfer orchestrator depends on (existence, PIN checks).
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/cqrs"
	"github.com/andreecahyadi/digital-bank-system/shared/events"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
	"github.com/andreecahyadi/digital-bank-system/shared/models"
	"github.com/andreecahyadi/digital-bank-system/shared/utils"
)

// Repository is the user persistence contract.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, keyword string) ([]models.User, error)
	ListByStatus(ctx context.Context, status string) ([]models.User, error)
	CreatedSince(ctx context.Context, since time.Time) ([]models.User, error)
}

// Publisher is the subset of the events publisher this service uses.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type IdentityService struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
}

func NewIdentityService(repo Repository, publisher Publisher) *IdentityService {
	return &IdentityService{repo: repo, publisher: publisher, now: time.Now}
}

func (s *IdentityService) Register(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error) {
	if !utils.ValidatePIN(cmd.PIN) {
		return nil, apperr.New(apperr.KindValidation, "PIN must be exactly 6 digits")
	}

	pinHash, err := utils.HashPIN(cmd.PIN)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash PIN", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:          utils.GenerateID("usr"),
		Email:       cmd.Email,
		FullName:    cmd.FullName,
		PhoneNumber: cmd.PhoneNumber,
		PINHash:     pinHash,
		Status:      models.UserActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}); err != nil {
		slog.Warn("failed to publish user.registered event", "userId", user.ID, "error", err)
	}
	return user, nil
}

// Login issues a signed JWT. Unknown emails and wrong PINs return the same
// error so callers cannot probe which emails are registered.
func (s *IdentityService) Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error) {
	user, err := s.repo.GetByEmail(ctx, cmd.Email)
	if err != nil {
		return "", apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	if user.Status != models.UserActive {
		return "", apperr.New(apperr.KindForbidden, "user is not active")
	}
	if !utils.CheckPIN(cmd.PIN, user.PINHash) {
		return "", apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	return s.generateToken(user.ID, user.Email)
}

func (s *IdentityService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error) {
	user, err := s.repo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return userToView(user), nil
}

func (s *IdentityService) GetUserByEmail(ctx context.Context, q cqrs.GetUserByEmailQuery) (*models.UserView, error) {
	user, err := s.repo.GetByEmail(ctx, q.Email)
	if err != nil {
		return nil, err
	}
	return userToView(user), nil
}

func (s *IdentityService) Exists(ctx context.Context, userID string) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// VerifyPIN checks the PIN of an existing active user. It reports false for
// a wrong PIN; a missing or inactive user is an error, not a false.
func (s *IdentityService) VerifyPIN(ctx context.Context, q cqrs.VerifyPINQuery) (bool, error) {
	user, err := s.repo.GetByID(ctx, q.UserID)
	if err != nil {
		return false, err
	}
	if user.Status != models.UserActive {
		return false, apperr.New(apperr.KindForbidden, "user is not active")
	}
	return utils.CheckPIN(q.PIN, user.PINHash), nil
}

func (s *IdentityService) SearchUsers(ctx context.Context, q cqrs.SearchUsersQuery) ([]models.UserView, error) {
	if q.Keyword == "" {
		return nil, apperr.New(apperr.KindValidation, "keyword is required")
	}
	users, err := s.repo.Search(ctx, q.Keyword)
	if err != nil {
		return nil, err
	}
	return usersToViews(users), nil
}

func (s *IdentityService) ActiveUsers(ctx context.Context) ([]models.UserView, error) {
	users, err := s.repo.ListByStatus(ctx, models.UserActive)
	if err != nil {
		return nil, err
	}
	return usersToViews(users), nil
}

func (s *IdentityService) RecentUsers(ctx context.Context, q cqrs.RecentUsersQuery) ([]models.UserView, error) {
	days := q.Days
	if days <= 0 {
		days = 7
	}
	users, err := s.repo.CreatedSince(ctx, s.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	return usersToViews(users), nil
}

func (s *IdentityService) generateToken(userID, email string) (string, error) {
	claims := middleware.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to generate token", err)
	}
	return signed, nil
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
	}
}

func usersToViews(users []models.User) []models.UserView {
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, *userToView(&users[i]))
	}
	return views
}
