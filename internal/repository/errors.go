package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrOpenOrderExists is returned when another unpaid order already holds
	// the (user, configuration) slot.
	ErrOpenOrderExists = errors.New("open order already exists")
	// ErrConflict means a conditional update matched no row because the
	// record changed underneath the caller.
	ErrConflict       = errors.New("record changed concurrently")
	ErrDuplicateEvent = errors.New("notification already recorded")
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
