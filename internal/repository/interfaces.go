package repository

import (
	"context"
	"time"

	"github.com/A414347330/vip-cinema/internal/model"
)

// UserStore is the users-table surface consumed by the account service.
type UserStore interface {
	GetByCredentials(ctx context.Context, account, passwordHash string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Search(ctx context.Context, term string, page, pageSize int) ([]model.User, int64, error)
	UpdateRole(ctx context.Context, id uint64, role string) error
	SetVIP(ctx context.Context, id uint64, active bool, expiry *time.Time) error
	// ExtendVIP atomically grants VIP days on top of the later of now and
	// the stored expiry, and returns the new expiry. Concurrent extensions
	// of one user must all take effect; none may be lost or shortened.
	ExtendVIP(ctx context.Context, id uint64, days int) (time.Time, error)
	Delete(ctx context.Context, id uint64) error
}

// CodeStore is the activation-codes surface consumed by the account service.
// Consume must be atomic: under concurrent redemption of the same code it
// succeeds for at most one caller and returns ErrCodeUnavailable to the rest.
type CodeStore interface {
	Consume(ctx context.Context, code, usedBy string) (durationDays int, err error)
	CreateBatch(ctx context.Context, codes []model.ActivationCode) error
	List(ctx context.Context, filter, search string, page, pageSize int) ([]model.CodeSummary, int64, error)
	Delete(ctx context.Context, id uint64) error
}

// EmailCodeStore exposes the read-only email_code_temp log.
type EmailCodeStore interface {
	List(ctx context.Context, search string, page, pageSize int) ([]model.EmailCode, int64, error)
}

// SessionStore is the slice of the refresh-token table the account service
// needs: when an admin deletes a user, their sessions go too.
type SessionStore interface {
	PurgeForUser(ctx context.Context, userID uint64) error
}
