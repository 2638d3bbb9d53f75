package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.AuthToken) == "" {
		return newFieldError("AuthToken", "不能为空")
	}
	if err := validateBaseURL(g.RawBaseURL); err != nil {
		return err
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("CacheTTL", "必须大于 0")
	}
	if g.OriginTimeout.DurationValue() <= 0 {
		return newFieldError("OriginTimeout", "必须大于 0")
	}
	if len(c.EffectiveExtensions()) == 0 {
		return newFieldError("AllowedExtensions", "至少需要一个扩展名")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Resources {
		res := &c.Resources[i]
		if res.Name == "" {
			return newFieldError("Resource[].Name", "不能为空")
		}
		if strings.ContainsAny(res.Name, "/\\") {
			return newFieldError(resourceField(res.Name, "Name"), "不能包含路径分隔符")
		}
		if _, exists := seenNames[res.Name]; exists {
			return newFieldError(resourceField(res.Name, "Name"), "重复")
		}
		seenNames[res.Name] = struct{}{}

		if res.Path == "" {
			return newFieldError(resourceField(res.Name, "Path"), "不能为空")
		}
		if err := validateResourcePath(res.Name, res.Path); err != nil {
			return err
		}
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return newFieldError("RawBaseURL", "不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return newFieldError("RawBaseURL", "必须是合法的绝对 URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newFieldError("RawBaseURL", "仅支持 http/https")
	}
	return nil
}

// validateResourcePath 接受以 / 开头的相对路径，或覆盖 RawBaseURL 的完整 URL。
func validateResourcePath(name, raw string) error {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return newFieldError(resourceField(name, "Path"), "完整 URL 不合法")
		}
		return nil
	}
	if !strings.HasPrefix(raw, "/") {
		return newFieldError(resourceField(name, "Path"), "相对路径必须以 / 开头")
	}
	if strings.Contains(raw, "..") {
		return newFieldError(resourceField(name, "Path"), "不允许路径回溯")
	}
	return nil
}
