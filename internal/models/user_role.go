package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppRole mirrors the app_role enum type.
type AppRole string

const (
	RoleUser      AppRole = "USER"
	RoleModerator AppRole = "MODERATOR"
)

func (r AppRole) Valid() bool {
	return r == RoleUser || r == RoleModerator
}

// UserRole grants a role to a user. (user_id, role) is unique.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role,priority:1" json:"user_id"`
	Role      AppRole   `gorm:"type:app_role;not null;uniqueIndex:idx_user_roles_user_role,priority:2" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ur *UserRole) BeforeCreate(tx *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}
	return nil
}

func (UserRole) TableName() string {
	return "user_roles"
}
