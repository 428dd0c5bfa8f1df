// Package pgstore is the Postgres-backed store.Store. Every caller-scoped
// operation runs in one transaction that exposes the caller to the RLS
// policies, and also carries the equivalent policy predicate in its WHERE
// clause so the rules hold even for a connection that bypasses RLS.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Store struct {
	db         *gorm.DB
	enforceRLS bool
}

var _ store.Store = (*Store)(nil)

// New wraps db. With enforceRLS each transaction switches to the
// database.RLSRole role so row-level security applies.
func New(db *gorm.DB, enforceRLS bool) *Store {
	return &Store{db: db, enforceRLS: enforceRLS}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// asCaller runs fn inside a transaction in which app.current_user_id is
// callerID.
func (s *Store) asCaller(ctx context.Context, callerID uuid.UUID, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config('"+database.CallerSetting+"', ?, true)", callerID.String()).Error; err != nil {
			return fmt.Errorf("set caller: %w", err)
		}
		if s.enforceRLS {
			if err := tx.Exec("SET LOCAL ROLE " + database.RLSRole).Error; err != nil {
				return fmt.Errorf("set role: %w", err)
			}
		}
		return fn(tx)
	})
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514", "23P01":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "42501", "P0001":
			return fmt.Errorf("%w: %s", store.ErrDenied, pgErr.Message)
		}
	}
	return err
}
