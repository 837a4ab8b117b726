package ports

import (
	"context"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email, role string, driverID int) (*domain.DriverAccount, error)
	Login(ctx context.Context, username, password string) (string, *domain.DriverAccount, error)
}
