package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// RequirePermission ensures the caller's role holds perm.
func RequirePermission(policy *Policy, perm Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		if actor == nil {
			return errorutil.NewUnauthenticated("authentication required")
		}
		if !policy.HasPermission(actor.Role, perm) {
			return errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, perm))
		}
		return c.Next()
	}
}

// RequireMinimumLevel ensures the caller's role is at least level n.
func RequireMinimumLevel(policy *Policy, n int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		if actor == nil {
			return errorutil.NewUnauthenticated("authentication required")
		}
		if !policy.HasMinimumLevel(actor.Role, n) {
			return errorutil.NewForbidden(fmt.Sprintf("role %s is below required level %d", actor.Role, n))
		}
		return c.Next()
	}
}
