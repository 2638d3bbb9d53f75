// Package relay 把路由层解析出的资源映射到缓存引擎，并将引擎结果渲染为
// HTTP 响应。它不包含缓存策略，策略全部在 resolver 内。
package relay

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/raw-relay/raw-relay/internal/logging"
	"github.com/raw-relay/raw-relay/internal/resolver"
	"github.com/raw-relay/raw-relay/internal/server"
)

// Handler 实现 server.ResourceHandler，对每个请求调用一次 Engine.Resolve。
type Handler struct {
	engine *resolver.Engine
	logger *logrus.Logger
}

// NewHandler constructs a relay handler around a shared engine and logger.
func NewHandler(engine *resolver.Engine, logger *logrus.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Handle 执行缓存解析并渲染响应，任何阶段出错都会输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx, route *server.ResourceRoute) error {
	started := time.Now()
	requestID := server.RequestID(c)
	forced := forceRequested(c)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := h.engine.Resolve(ctx, route.OriginURL, forced)
	if err != nil {
		h.logResult(route, requestID, "", forced, started, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "upstream_failed",
		})
	}

	if result.ContentType != "" {
		c.Set(fiber.HeaderContentType, result.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	}
	c.Set("X-Raw-Relay-Cache", string(result.Provenance))
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}

	h.logResult(route, requestID, string(result.Provenance), forced, started, nil)
	return c.Status(fiber.StatusOK).Send(result.Content)
}

// forceRequested 识别 ?refresh=1/true/yes 形式的强制刷新请求。
func forceRequested(c fiber.Ctx) bool {
	switch c.Query("refresh") {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (h *Handler) logResult(
	route *server.ResourceRoute,
	requestID string,
	provenance string,
	forced bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(route.Name, route.OriginURL, provenance, forced)
	fields["action"] = "relay"
	fields["configured"] = route.Configured
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("relay_failed")
		return
	}
	h.logger.WithFields(fields).Info("relay_complete")
}
