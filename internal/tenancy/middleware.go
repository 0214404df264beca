package tenancy

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/workshop-tickets/pkg/util/errorutil"
)

const (
	principalKey = "tenancy_principal"

	HeaderTenantID = "X-Tenant-ID"
	HeaderActorID  = "X-Actor-ID"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,63}$`)

// Principal identifies the caller of a request. Credentials are verified
// upstream; this service trusts the gateway headers.
type Principal struct {
	TenantID string
	ActorID  *string
}

// Middleware resolves the caller from request headers.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := strings.TrimSpace(c.Get(HeaderTenantID))
		if tenantID == "" {
			return apperrors.NewValidationError("missing "+HeaderTenantID+" header", nil)
		}
		if !identifierPattern.MatchString(tenantID) {
			return apperrors.NewValidationError("invalid "+HeaderTenantID+" header", nil)
		}

		principal := &Principal{TenantID: tenantID}
		if actorID := strings.TrimSpace(c.Get(HeaderActorID)); actorID != "" {
			if !identifierPattern.MatchString(actorID) {
				return apperrors.NewValidationError("invalid "+HeaderActorID+" header", nil)
			}
			principal.ActorID = &actorID
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// PrincipalFromContext retrieves the resolved caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
