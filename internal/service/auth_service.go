package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/edustack/assess-backend/internal/config"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for unknown usernames and wrong
// passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims extends JWT standard claims with the identity fields this
// pipeline consumes: an opaque user id and a coarse role. Everything else
// about the user lives with the identity collaborator.
type Claims struct {
	jwt.RegisteredClaims
	Role   model.Role `json:"role"`
	UserID int        `json:"user_id"`
}

// AuthService is the identity collaborator boundary: it checks credentials
// and issues/validates role tokens. The pipeline trusts the resulting ids.
type AuthService struct {
	cfg      *config.Config
	accounts *repository.AccountRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, accounts *repository.AccountRepository) *AuthService {
	return &AuthService{cfg: cfg, accounts: accounts}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// Login checks credentials and returns a signed role token plus the
// account it belongs to.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// GetAccount retrieves the account behind a validated token.
func (s *AuthService) GetAccount(ctx context.Context, id int) (*model.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *AuthService) generateToken(account *model.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		Role:   account.Role,
		UserID: account.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
