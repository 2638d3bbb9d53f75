package server

import (
	"errors"
	"strings"

	"github.com/raw-relay/raw-relay/internal/config"
	"github.com/raw-relay/raw-relay/internal/resource"
)

// ResourceRoute 将一个对外名字与解析完成的源站 URL 聚合在一起，
// 供路由/中继层直接复用，避免重复解析配置。
type ResourceRoute struct {
	// Name 是客户端请求里的文件名（或配置的别名），始终小写。
	Name string
	// OriginURL 是缓存引擎使用的 identifier。两个名字解析到同一个 URL
	// 时共享一个缓存条目，键控在引擎侧按 URL 完成。
	OriginURL string
	// Configured 标记该路由来自配置文件而非扩展名白名单兜底。
	Configured bool
}

// RouteRegistry 提供名字 → ResourceRoute 的查询能力。配置的别名优先，
// 未配置的名字退回扩展名校验 + RawBaseURL 拼接。
type RouteRegistry struct {
	baseURL    string
	extensions []string
	routes     map[string]*ResourceRoute
	ordered    []*ResourceRoute
}

// NewRouteRegistry 根据配置构建名字映射。调用方应在启动阶段创建一次并复用。
func NewRouteRegistry(cfg *config.Config) (*RouteRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &RouteRegistry{
		baseURL:    cfg.Global.RawBaseURL,
		extensions: cfg.EffectiveExtensions(),
		routes:     make(map[string]*ResourceRoute, len(cfg.Resources)),
	}

	for _, res := range cfg.Resources {
		name := strings.ToLower(strings.TrimSpace(res.Name))
		if name == "" {
			return nil, errors.New("resource name required")
		}
		if _, exists := registry.routes[name]; exists {
			return nil, errors.New("duplicate resource name: " + name)
		}

		route := &ResourceRoute{
			Name:       name,
			OriginURL:  originURLFor(cfg.Global.RawBaseURL, res.Path),
			Configured: true,
		}
		registry.routes[name] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Resolve 查找名字对应的路由。未配置的名字需要通过扩展名校验才会兜底生成。
func (r *RouteRegistry) Resolve(name string) (*ResourceRoute, error) {
	if r == nil {
		return nil, errors.New("registry is nil")
	}

	normalized := strings.ToLower(strings.TrimSpace(name))
	if route, ok := r.routes[normalized]; ok {
		return route, nil
	}

	if err := resource.ValidateName(name, r.extensions); err != nil {
		return nil, err
	}
	return &ResourceRoute{
		Name:      normalized,
		OriginURL: resource.RawURL(r.baseURL, name),
	}, nil
}

// List 返回配置声明的路由（按定义顺序），用于诊断输出。
func (r *RouteRegistry) List() []ResourceRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	result := make([]ResourceRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// originURLFor 接受完整 URL 或相对路径两种写法。
func originURLFor(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + path
}
