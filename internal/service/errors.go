package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMarketNotFound         = errors.New("market not found")
	ErrMarketClosed           = errors.New("market is not open for trading")
	ErrAlreadyResolved        = errors.New("market already resolved")
	ErrInvalidTransition      = errors.New("invalid market status transition")
	ErrInsufficientBalance    = errors.New("insufficient available credits")
	ErrConcurrentModification = errors.New("concurrent modification, retries exhausted")
)

// isRetryableTxError reports whether a transaction failed due to a
// serialization conflict or deadlock, both safe to retry after re-reading
// state.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}
