package tenancy

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/workshop-tickets/pkg/util/errorutil"
)

// RequireActor ensures the request names the person acting, so every
// change in the audit trail is attributed.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewValidationError("missing "+HeaderTenantID+" header", nil)
		}
		if principal.ActorID == nil {
			return apperrors.NewUnauthorized("missing " + HeaderActorID + " header")
		}
		return c.Next()
	}
}
