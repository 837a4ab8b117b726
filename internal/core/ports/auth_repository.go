package ports

import (
	"context"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// AuthRepository defines the interface for driver-account persistence.
type AuthRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.DriverAccount, error)
	Create(ctx context.Context, account *domain.DriverAccount) (*domain.DriverAccount, error)
}
