package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
)

// RoleStore is what RoleService needs from the data store.
type RoleStore interface {
	store.Roles
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RoleService is operator-only role administration. It is never reachable
// with a user token.
type RoleService struct {
	store  RoleStore
	events realtime.Publisher
}

func NewRoleService(st RoleStore, events realtime.Publisher) *RoleService {
	return &RoleService{store: st, events: events}
}

func parseRole(v string) (models.AppRole, error) {
	role := models.AppRole(v)
	if !role.Valid() {
		return "", invalid("role", "must be USER or MODERATOR")
	}
	return role, nil
}

// Grant fails with store.ErrConflict when the role is already held.
func (s *RoleService) Grant(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := parseRole(roleName)
	if err != nil {
		return err
	}
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.store.GrantRole(ctx, userID, role); err != nil {
		return err
	}
	notify(ctx, s.events, realtime.NewEvent(realtime.EntityUserRoles, realtime.ActionRoleGranted, userID))
	return nil
}

func (s *RoleService) Revoke(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := parseRole(roleName)
	if err != nil {
		return err
	}
	if err := s.store.RevokeRole(ctx, userID, role); err != nil {
		return err
	}
	notify(ctx, s.events, realtime.NewEvent(realtime.EntityUserRoles, realtime.ActionRoleRevoked, userID))
	return nil
}

func (s *RoleService) List(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	return s.store.ListRoles(ctx, userID)
}
