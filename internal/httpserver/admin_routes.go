package httpserver

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/fedramp_marketplace/internal/app"
	"github.com/ncecere/fedramp_marketplace/internal/httpserver/httputil"
)

const (
	adminAuthHeaderPrefix  = "bearer "
	adminAuthorizationName = "Authorization"
	adminSubjectLocal      = "adminSubject"
)

func registerAdminRoutes(v1 fiber.Router, container *app.Container) {
	admin := v1.Group("/admin", adminAuthMiddleware(container))

	admin.Post("/catalog/reload", func(c *fiber.Ctx) error {
		snap, err := container.Reload(c.UserContext(), true)
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadGateway, "catalog reload failed: "+err.Error())
		}
		container.Logger.Info("catalog reloaded by admin",
			slog.Any("subject", c.Locals(adminSubjectLocal)),
			slog.String("snapshot_id", snap.ID.String()),
		)
		return c.JSON(fiber.Map{
			"snapshot_id": snap.ID.String(),
			"origin":      snap.Origin,
			"providers":   len(snap.Providers()),
			"products":    len(snap.Products()),
			"agencies":    len(snap.Agencies()),
		})
	})
}

// adminAuthMiddleware requires a bearer token signed with admin.token_secret.
// Without a configured secret every admin request is refused.
func adminAuthMiddleware(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if container.AdminAuth == nil {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "admin api is not configured")
		}
		raw := strings.TrimSpace(c.Get(adminAuthorizationName))
		token := ""
		if raw != "" && strings.HasPrefix(strings.ToLower(raw), adminAuthHeaderPrefix) {
			token = strings.TrimSpace(raw[len(adminAuthHeaderPrefix):])
		}
		if token == "" {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "admin authorization required")
		}

		subject, err := container.AdminAuth.Verify(token)
		if err != nil {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(adminSubjectLocal, subject)
		return c.Next()
	}
}
