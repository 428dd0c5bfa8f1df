package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromToken(t *testing.T) {
	id := uuid.New()

	got, err := FromToken(&jwt.Token{Claims: jwt.MapClaims{"sub": id.String()}})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = FromToken(nil)
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = FromToken(&jwt.Token{Claims: jwt.MapClaims{}})
	assert.Error(t, err)

	_, err = FromToken(&jwt.Token{Claims: jwt.MapClaims{"sub": "not-a-uuid"}})
	assert.Error(t, err)

	_, err = FromToken(&jwt.Token{Claims: jwt.MapClaims{"sub": uuid.Nil.String()}})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestGetUserIDFromLocals(t *testing.T) {
	id := uuid.New()
	app := fiber.New()
	app.Get("/with", func(c *fiber.Ctx) error {
		c.Locals(TokenKey, &jwt.Token{Claims: jwt.MapClaims{"sub": id.String(), "email": "a@example.com"}})
		got, err := GetUserID(c)
		if err != nil {
			return err
		}
		return c.SendString(got.String() + " " + GetEmail(c))
	})
	app.Get("/without", func(c *fiber.Ctx) error {
		if _, err := GetUserID(c); err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/with", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/without", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
