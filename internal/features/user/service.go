package user

import (
	"context"
	"net/mail"
	"strings"

	"go-regula/internal/common/apperr"
	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/database"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(ctx context.Context, email string, role string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	// EmailsByRole resolves the notification recipients for a role.
	EmailsByRole(ctx context.Context, role models.Role) ([]string, error)
}

type UserServiceImpl struct {
	DB       *database.Database
	UserRepo UserRepository
	Clock    clock.Clock
}

func NewUserService(db *database.Database, userRepo UserRepository, clk clock.Clock) UserService {
	return &UserServiceImpl{
		DB:       db,
		UserRepo: userRepo,
		Clock:    clk,
	}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, email string, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email %q", email)
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	u := &User{ID: uuid.NewString(), Email: email, Role: r, CreatedAt: s.Clock.Now()}
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.UserRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("user %s already exists", email)
		}
		return s.UserRepo.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*User, error) {
	u, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]User, error) {
	return s.UserRepo.List(ctx)
}

func (s *UserServiceImpl) CountUsers(ctx context.Context) (int, error) {
	return s.UserRepo.Count(ctx)
}

func (s *UserServiceImpl) EmailsByRole(ctx context.Context, role models.Role) ([]string, error) {
	users, err := s.UserRepo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return emails, nil
}
