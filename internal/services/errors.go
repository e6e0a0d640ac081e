package services

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"tokoku/internal/repos"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrBadCreds          = errors.New("invalid email or password")
)

// Now is the service clock.
var Now = func() time.Time { return time.Now().UTC() }

// ValidationError carries every failed check; it matches ErrValidation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Problems lists the individual failures.
func (e *ValidationError) Problems() []string {
	var out []string
	for _, err := range multierr.Errors(e.Err) {
		out = append(out, err.Error())
	}
	return out
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return invalid(errors.Errorf(format, args...))
}

// lookup maps a missing row to ErrNotFound and passes other errors through.
func lookup(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return errors.Wrap(ErrNotFound, what)
	case errors.Is(err, repos.ErrInsufficientStock), errors.Is(err, repos.ErrQuotaExceeded):
		return errors.Wrap(ErrInsufficientStock, err.Error())
	}
	return err
}

func wrapConflict(what string) error {
	return errors.Wrap(ErrConflict, what+" already exists")
}
