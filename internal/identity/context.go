// Package identity reads the authenticated caller out of a request.
package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKey is where the JWT middleware stores the verified token.
const TokenKey = "user"

var ErrNoIdentity = errors.New("no authenticated identity")

// FromToken returns the sub claim of a verified token.
func FromToken(token *jwt.Token) (uuid.UUID, error) {
	if token == nil {
		return uuid.Nil, ErrNoIdentity
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, ErrNoIdentity
	}
	return id, nil
}

// GetUserID extracts the caller UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(TokenKey).(*jwt.Token)
	if !ok {
		return uuid.Nil, ErrNoIdentity
	}
	return FromToken(token)
}

func GetEmail(c *fiber.Ctx) string {
	token, ok := c.Locals(TokenKey).(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
