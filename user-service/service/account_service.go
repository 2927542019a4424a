package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/user-service/model"
	"github.com/arunvm123/tourismbooking/user-service/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens. Satisfied by *auth.JWTService.
type TokenIssuer interface {
	GenerateToken(userID, email, role string, ttl time.Duration) (string, error)
}

type AccountOptions struct {
	TokenTTL    time.Duration
	BcryptCost  int
	IsAdminMail func(email string) bool
}

type AccountService struct {
	repo   repository.UserRepository
	tokens TokenIssuer
	opts   AccountOptions
	log    *slog.Logger
}

func NewAccountService(repo repository.UserRepository, tokens TokenIssuer, opts AccountOptions, log *slog.Logger) *AccountService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.IsAdminMail == nil {
		opts.IsAdminMail = func(string) bool { return false }
	}
	return &AccountService{repo: repo, tokens: tokens, opts: opts, log: log}
}

func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := auth.RoleUser
	if s.opts.IsAdminMail(email) {
		role = auth.RoleAdmin
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID, "role", role)
	return user, nil
}

// Login checks credentials and returns a signed access token. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.opts.TokenTTL.Seconds()),
		User:        user.ToUserResponse(),
	}, nil
}

func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
