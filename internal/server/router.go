package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ResourceHandler describes the component responsible for resolving a resource
// through the cache engine. It allows injecting fake handlers during tests.
type ResourceHandler interface {
	Handle(fiber.Ctx, *ResourceRoute) error
}

// ResourceHandlerFunc adapts a function to the ResourceHandler interface.
type ResourceHandlerFunc func(fiber.Ctx, *ResourceRoute) error

// Handle makes ResourceHandlerFunc satisfy ResourceHandler.
func (f ResourceHandlerFunc) Handle(c fiber.Ctx, route *ResourceRoute) error {
	return f(c, route)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *RouteRegistry
	Relay      ResourceHandler
	AuthToken  string
	ListenPort int
}

const contextKeyRequestID = "_rawrelay_request_id"

// NewApp builds a Fiber application with token auth, request IDs and
// structured error handling. Diagnostics under /-/ stay unauthenticated.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("route registry is required")
	}
	if opts.Relay == nil {
		return nil, errors.New("resource handler is required")
	}
	if opts.AuthToken == "" {
		return nil, errors.New("auth token is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())
	app.Use(authMiddleware(opts))

	app.Get("/raw/:name", func(c fiber.Ctx) error {
		name := c.Params("name")
		route, err := opts.Registry.Resolve(name)
		if err != nil {
			return renderNameRejected(c, opts.Logger, name, err)
		}
		return opts.Relay.Handle(c, route)
	})

	return app, nil
}

// requestIDMiddleware 为每个请求生成 UUID，并写入响应头与请求上下文。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// authMiddleware 校验静态令牌，支持 Authorization: Bearer 与 ?token= 两种写法。
// 诊断路径 /-/ 不做校验。
func authMiddleware(opts AppOptions) fiber.Handler {
	expected := []byte(opts.AuthToken)
	return func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}

		presented := presentedToken(c)
		if presented == "" ||
			subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "auth",
				"path":       string(c.Request().URI().Path()),
				"request_id": RequestID(c),
			}).Warn("token rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		return c.Next()
	}
}

func presentedToken(c fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

func renderNameRejected(c fiber.Ctx, logger *logrus.Logger, name string, err error) error {
	logger.WithFields(logrus.Fields{
		"action":     "resolve_name",
		"name":       name,
		"request_id": RequestID(c),
		"error":      err.Error(),
	}).Warn("resource name rejected")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "resource_invalid",
	})
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
