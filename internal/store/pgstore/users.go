package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	var ok bool
	err := s.db.WithContext(ctx).
		Raw("SELECT has_role(?, CAST(? AS app_role))", userID, string(role)).
		Scan(&ok).Error
	return ok, translate(err)
}

func (s *Store) ListRoles(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	var roles []models.AppRole
	err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("role").
		Pluck("role", &roles).Error
	return roles, translate(err)
}

func (s *Store) GrantRole(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).
		Create(&models.UserRole{UserID: userID, Role: role}).Error)
}

func (s *Store) RevokeRole(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND role = ?", userID, string(role)).Delete(&models.UserRole{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateUser inserts the identity and its USER role in one transaction. The
// users trigger grants the same row; ON CONFLICT keeps the two from clashing.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserRole{UserID: u.ID, Role: models.RoleUser}).Error)
	})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// DeleteUser relies on the foreign keys: reports, roles and tokens cascade,
// reviewed_by is set to NULL.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error)
}

func (s *Store) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	var rows []models.RefreshToken
	err := s.db.WithContext(ctx).
		Raw("UPDATE refresh_tokens SET revoked = true WHERE token_hash = ? AND revoked = false RETURNING *", hash).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(rows) == 0 || now.After(rows[0].ExpiresAt) {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error {
	return translate(s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND user_id = ?", hash, userID).
		Update("revoked", true).Error)
}
