package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role the service issues.
const RoleAdmin = "admin"

// ErrInvalidCredentials is returned for a wrong admin password.
var ErrInvalidCredentials = errors.New("invalid password")

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthService interface {
	Login(req LoginRequest) (LoginResponse, error)
	Enabled() bool
}

type authService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
}

// NewAuthService guards settings with a single bcrypt-hashed admin password.
// An empty hash disables authentication.
func NewAuthService(passwordHash string, secret []byte, ttl time.Duration) AuthService {
	return &authService{passwordHash: []byte(passwordHash), secret: secret, ttl: ttl}
}

func (s *authService) Enabled() bool {
	return len(s.passwordHash) > 0
}

func (s *authService) Login(req LoginRequest) (LoginResponse, error) {
	if !s.Enabled() {
		return LoginResponse{}, fmt.Errorf("%w: admin login is not configured", ErrUnsupported)
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  RoleAdmin,
		"role": RoleAdmin,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return LoginResponse{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
