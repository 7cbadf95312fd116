package httpserver

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/fedramp_marketplace/internal/app"
	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/httpserver/httputil"
	"github.com/ncecere/fedramp_marketplace/internal/limits"
	"github.com/ncecere/fedramp_marketplace/internal/models"
)

type groupedResponse struct {
	SnapshotID string                    `json:"snapshot_id"`
	Providers  []catalog.GroupedProvider `json:"providers"`
}

type agencyProductsResponse struct {
	Agency agencySummary `json:"agency"`
	groupedResponse
}

type groupRequest struct {
	Products []string `json:"products"`
}

type providerSummary struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Products []string `json:"products"`
}

type productSummary struct {
	models.Product
	Slug string `json:"slug"`
}

type agencySummary struct {
	models.Agency
	Slug string `json:"slug"`
}

func registerCatalogRoutes(fiberApp *fiber.App, container *app.Container) {
	v1 := fiberApp.Group("/v1", rateLimit(container))

	v1.Get("/providers", func(c *fiber.Ctx) error {
		snap := container.Snapshot()
		if snap == nil {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, app.ErrSnapshotNotReady.Error())
		}
		out := make([]providerSummary, 0, len(snap.Providers()))
		for _, p := range snap.Providers() {
			out = append(out, providerSummary{Name: p.Name, Slug: catalog.Slugify(p.Name), Products: p.ProductNames()})
		}
		return c.JSON(fiber.Map{"snapshot_id": snap.ID.String(), "providers": out})
	})

	v1.Get("/products", func(c *fiber.Ctx) error {
		snap := container.Snapshot()
		if snap == nil {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, app.ErrSnapshotNotReady.Error())
		}
		out := make([]productSummary, 0, len(snap.Products()))
		for _, p := range snap.Products() {
			out = append(out, productSummary{Product: p, Slug: catalog.Slugify(p.Name)})
		}
		return c.JSON(fiber.Map{"snapshot_id": snap.ID.String(), "products": out})
	})

	v1.Get("/products/grouped", func(c *fiber.Ctx) error {
		return writeGrouped(c, container, requestedNames(c))
	})

	v1.Post("/products/grouped", func(c *fiber.Ctx) error {
		var req groupRequest
		if err := c.BodyParser(&req); err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
		}
		return writeGrouped(c, container, req.Products)
	})

	v1.Get("/agencies", func(c *fiber.Ctx) error {
		snap := container.Snapshot()
		if snap == nil {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, app.ErrSnapshotNotReady.Error())
		}
		out := make([]agencySummary, 0, len(snap.Agencies()))
		for _, a := range snap.Agencies() {
			out = append(out, agencySummary{Agency: a, Slug: catalog.Slugify(a.Name)})
		}
		return c.JSON(fiber.Map{"snapshot_id": snap.ID.String(), "agencies": out})
	})

	v1.Get("/agencies/:slug/products", func(c *fiber.Ctx) error {
		agency, result, err := container.GroupAgency(c.UserContext(), c.Params("slug"))
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(agencyProductsResponse{
			Agency: agencySummary{Agency: agency, Slug: catalog.Slugify(agency.Name)},
			groupedResponse: groupedResponse{
				SnapshotID: result.Snapshot.ID.String(),
				Providers:  result.Providers,
			},
		})
	})

	registerAdminRoutes(v1, container)
}

func writeGrouped(c *fiber.Ctx, container *app.Container, names []string) error {
	if err := container.CheckRequestSize(len(names)); err != nil {
		return writeAppError(c, err)
	}
	if err := container.Limiter.ProductAllowance(c.UserContext(), c.IP(), len(names)); err != nil {
		return writeLimitError(c, err)
	}
	result, err := container.Group(c.UserContext(), names)
	if err != nil {
		return writeAppError(c, err)
	}
	return c.JSON(groupedResponse{
		SnapshotID: result.Snapshot.ID.String(),
		Providers:  result.Providers,
	})
}

// rateLimit applies the per-client limits keyed by remote address.
func rateLimit(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if container.Limiter == nil {
			return c.Next()
		}
		clientID := c.IP()
		if err := container.Limiter.Acquire(c.UserContext(), clientID); err != nil {
			return writeLimitError(c, err)
		}
		defer container.Limiter.Release(c.UserContext(), clientID)
		return c.Next()
	}
}

func writeLimitError(c *fiber.Ctx, err error) error {
	if errors.Is(err, limits.ErrLimitExceeded) {
		return httputil.WriteError(c, fiber.StatusTooManyRequests, err.Error())
	}
	return httputil.WriteError(c, fiber.StatusInternalServerError, "rate limiter unavailable")
}

func writeAppError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, app.ErrAgencyNotFound):
		return httputil.WriteError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrTooManyProducts):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrSnapshotNotReady):
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
}

// requestedNames collects repeated name= parameters verbatim and splits
// names= on commas.
func requestedNames(c *fiber.Ctx) []string {
	args := c.Context().QueryArgs()
	var names []string
	for _, raw := range args.PeekMulti("name") {
		names = append(names, string(raw))
	}
	for _, raw := range args.PeekMulti("names") {
		for _, part := range strings.Split(string(raw), ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				names = append(names, trimmed)
			}
		}
	}
	return names
}
