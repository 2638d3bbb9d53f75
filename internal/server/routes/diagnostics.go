package routes

import (
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/raw-relay/raw-relay/internal/resolver"
	"github.com/raw-relay/raw-relay/internal/server"
	"github.com/raw-relay/raw-relay/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 下的诊断接口：健康检查、配置路由
// 列表以及缓存条目快照，便于运维确认缓存行为。
func RegisterDiagnosticsRoutes(app *fiber.App, registry *server.RouteRegistry, engine *resolver.Engine) {
	if app == nil {
		return
	}

	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	app.Get("/-/resources", func(c fiber.Ctx) error {
		var routes []server.ResourceRoute
		if registry != nil {
			routes = registry.List()
		}
		return c.JSON(fiber.Map{
			"resources": encodeRoutes(routes),
		})
	})

	app.Get("/-/cache", func(c fiber.Ctx) error {
		var entries []resolver.EntryInfo
		if engine != nil {
			entries = engine.Snapshot()
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Identifier < entries[j].Identifier
		})
		return c.JSON(fiber.Map{
			"entries": entries,
			"count":   len(entries),
		})
	})
}

type routePayload struct {
	Name      string `json:"name"`
	OriginURL string `json:"origin_url"`
}

func encodeRoutes(routes []server.ResourceRoute) []routePayload {
	if len(routes) == 0 {
		return nil
	}
	result := make([]routePayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, routePayload{
			Name:      route.Name,
			OriginURL: route.OriginURL,
		})
	}
	return result
}
