package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable decides whether a failed operation may be attempted again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs op with DefaultMaxRetries, retrying sequence conflicts.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsConflict)
}

// WithRetries runs op once plus up to maxRetries more times while the error
// is retryable, backing off a little longer after each attempt.
func WithRetries(op Operation, maxRetries int, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsConflict reports whether err comes from two writers racing for the same
// sequence slot or invoice number.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSequenceConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
