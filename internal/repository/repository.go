package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when a user with the same email already exists
	ErrEmailTaken = errors.New("email already registered")
	// ErrCodeConflict is returned when a generated short code is already in use
	ErrCodeConflict = errors.New("short code already in use")
	// ErrUnknownOwner is returned when a link references a user that does not exist
	ErrUnknownOwner = errors.New("owner does not exist")
)

// PostgreSQL error codes the repositories react to
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidTextRepr     = "22P02"
	defaultStoreOpTimeout = 5 * time.Second
)

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// withTimeout bounds a single store operation
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
