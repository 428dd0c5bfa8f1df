package policy

import (
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQL renditions of the predicates in policy.go. Each uses the named
// parameter @caller and is evaluated inside the statement itself, so the
// current row state is what gets checked.
const (
	ReadSQL = `(status = 'verified' OR user_id = @caller OR has_role(@caller, 'MODERATOR'))`

	EditContentSQL = `((user_id = @caller AND status = 'pending') OR has_role(@caller, 'MODERATOR'))`

	ReviewSQL = `(status = 'pending' AND has_role(@caller, 'MODERATOR'))`
)

// Caller binds the @caller parameter.
func Caller(userID uuid.UUID) sql.NamedArg {
	return sql.Named("caller", userID)
}

// ReadableBy filters a reports query down to rows userID may read.
func ReadableBy(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(ReadSQL, Caller(userID))
	}
}

// OwnedBy restricts a reports query to userID's own rows.
func OwnedBy(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
