package auth

import (
	"strings"

	"farm-backend/internal/access"
	"farm-backend/internal/response"

	"github.com/gofiber/fiber/v2"
)

const CtxPrincipalKey = "principal"

// Resolve reads the bearer token, when there is one, and stores the principal.
// Requests without a valid token continue anonymously; the gate decides later.
func Resolve(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Next()
		}

		if p, err := ParseToken(secret, strings.TrimSpace(parts[1])); err == nil {
			c.Locals(CtxPrincipalKey, p)
		}
		return c.Next()
	}
}

// PrincipalFrom returns the request's principal or nil.
func PrincipalFrom(c *fiber.Ctx) *access.Principal {
	p, _ := c.Locals(CtxPrincipalKey).(*access.Principal)
	return p
}

func Authenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.RequireAuthenticated(PrincipalFrom(c)).Err(); err != nil {
			return err
		}
		return c.Next()
	}
}

func RequireRole(allowed ...access.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.RequireRole(PrincipalFrom(c), allowed...).Err(); err != nil {
			return err
		}
		return c.Next()
	}
}

// Principal runs the authentication check inside a handler and returns the caller.
func Principal(c *fiber.Ctx) (*access.Principal, error) {
	d := access.RequireAuthenticated(PrincipalFrom(c))
	if !d.Authorized {
		return nil, d.Err()
	}
	return d.Principal, nil
}

// OwnerFor picks the owner of a new row: admins may act for another user, everyone else owns what they create.
func OwnerFor(p *access.Principal, requested *uint) (uint, error) {
	if requested == nil || *requested == p.ID {
		return p.ID, nil
	}
	if !p.IsAdmin() {
		return 0, response.Forbidden("Only administrators can create records for another user")
	}
	return *requested, nil
}
