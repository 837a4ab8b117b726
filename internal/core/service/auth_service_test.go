package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

type stubAuthRepo struct {
	accounts map[string]*domain.DriverAccount
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{accounts: make(map[string]*domain.DriverAccount)}
}

func (r *stubAuthRepo) FindByUsername(ctx context.Context, username string) (*domain.DriverAccount, error) {
	a, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrDriverNotFound
	}
	return a, nil
}

func (r *stubAuthRepo) Create(ctx context.Context, account *domain.DriverAccount) (*domain.DriverAccount, error) {
	if _, ok := r.accounts[account.Username]; ok {
		return nil, domain.ErrDriverExists
	}
	account.ID = "generated-id"
	r.accounts[account.Username] = account
	return account, nil
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newStubAuthRepo()
	s := NewAuthService(repo, "secret", time.Hour)

	account, err := s.Register(context.Background(), "alice", "s3cretpass", "alice@example.com", domain.RoleDriver, 42)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.PasswordHash == "s3cretpass" {
		t.Fatalf("password stored in clear")
	}
	if account.DriverID != 42 {
		t.Fatalf("driver id not stored: %d", account.DriverID)
	}

	token, logged, err := s.Login(context.Background(), "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.Username != "alice" {
		t.Fatalf("wrong account returned: %+v", logged)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tk *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims["role"] != domain.RoleDriver {
		t.Fatalf("role claim missing: %v", claims)
	}
	if id, ok := claims["driver_id"].(float64); !ok || int(id) != 42 {
		t.Fatalf("driver_id claim missing: %v", claims)
	}
}

func TestRegister_Validation(t *testing.T) {
	s := NewAuthService(newStubAuthRepo(), "secret", time.Hour)

	if _, err := s.Register(context.Background(), "", "pass", "", domain.RoleDriver, 1); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("empty username accepted: %v", err)
	}
	if _, err := s.Register(context.Background(), "bob", "pass", "", "superuser", 1); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown role accepted: %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := NewAuthService(newStubAuthRepo(), "secret", time.Hour)

	if _, err := s.Register(context.Background(), "alice", "passpass", "", domain.RoleDriver, 1); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := s.Register(context.Background(), "alice", "passpass", "", domain.RoleDriver, 1); !errors.Is(err, domain.ErrDriverExists) {
		t.Fatalf("expected ErrDriverExists, got %v", err)
	}
}

func TestLogin_Failures(t *testing.T) {
	s := NewAuthService(newStubAuthRepo(), "secret", time.Hour)

	if _, _, err := s.Login(context.Background(), "ghost", "pass"); !errors.Is(err, domain.ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}

	if _, err := s.Register(context.Background(), "alice", "rightpass", "", domain.RoleDriver, 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := s.Login(context.Background(), "alice", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
