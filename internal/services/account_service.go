package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Nebulafr/Nebula-sub000/internal/auth"
	"github.com/Nebulafr/Nebula-sub000/internal/models"
	"github.com/Nebulafr/Nebula-sub000/internal/repository"
	"github.com/Nebulafr/Nebula-sub000/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type RegisterInput struct {
	Email      string
	Password   string
	Role       string
	FullName   string
	Timezone   *string
	HourlyRate float64
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Account struct {
	User    *models.User    `json:"user"`
	Student *models.Student `json:"student,omitempty"`
	Coach   *models.Coach   `json:"coach,omitempty"`
}

type AccountService struct {
	store     repository.Store
	jwtSecret string
	logger    *logrus.Logger
}

func NewAccountService(store repository.Store, jwtSecret string, logger *logrus.Logger) *AccountService {
	return &AccountService{store: store, jwtSecret: jwtSecret, logger: logger}
}

// Register creates the user and its student or coach profile together.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.Role != auth.RoleStudent && input.Role != auth.RoleCoach {
		return nil, BadRequest("Invalid role")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         input.Role,
		FullName:     strings.TrimSpace(input.FullName),
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		if user.Role == auth.RoleStudent {
			_, err := tx.Students().Create(ctx, user.ID, input.Timezone)
			return err
		}
		timezone := "UTC"
		if input.Timezone != nil && *input.Timezone != "" {
			timezone = *input.Timezone
		}
		_, err := tx.Coaches().Create(ctx, user.ID, input.HourlyRate, timezone)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("Email already exists")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return s.issue(user)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, Unauthorized("Invalid email or password")
	}
	return s.issue(user)
}

func (s *AccountService) Me(ctx context.Context, principal auth.Principal) (*Account, error) {
	user, err := s.store.Users().GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, notFoundIfMissing(err, "User not found")
	}

	account := &Account{User: user}
	switch user.Role {
	case auth.RoleStudent:
		student, err := s.store.Students().GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		account.Student = student
	case auth.RoleCoach:
		coach, err := s.store.Coaches().GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		account.Coach = coach
	}
	return account, nil
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Role, user.Email, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
