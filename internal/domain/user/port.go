//go:generate mockgen -destination=mocks/mock_port.go -package=mocks github.com/NordCoder/Alive/internal/domain/user Repo,Transactor

package user

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*User, error)
	GetByIdentity(ctx context.Context, nickname, deviceID string) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
	UpdateCheckIn(ctx context.Context, id int64, lastCheckIn time.Time, streakDays int) error
	UpdateTargets(ctx context.Context, id int64, t Targets) error
	Delete(ctx context.Context, id int64) error
}

type Transactor interface {
	WithTx(ctx context.Context, function func(ctx context.Context) error) error
}
