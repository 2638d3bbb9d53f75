package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有资源共享同一份参数。
type GlobalConfig struct {
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	AuthToken     string   `mapstructure:"AuthToken"`
	RawBaseURL    string   `mapstructure:"RawBaseURL"`
	CacheTTL      Duration `mapstructure:"CacheTTL"`
	OriginTimeout Duration `mapstructure:"OriginTimeout"`
	Extensions    []string `mapstructure:"AllowedExtensions"`
}

// ResourceConfig 将一个对外路由名映射到源站的相对路径（或完整 URL）。
// 多个名字映射到同一个上游 URL 时会共享同一个缓存条目。
type ResourceConfig struct {
	Name string `mapstructure:"Name"`
	Path string `mapstructure:"Path"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig     `mapstructure:",squash"`
	Resources []ResourceConfig `mapstructure:"Resource"`
}

// EffectiveExtensions 返回归一化后的扩展名白名单（全部带点、全部小写）。
func (c *Config) EffectiveExtensions() []string {
	result := make([]string, 0, len(c.Global.Extensions))
	for _, ext := range c.Global.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result = append(result, ext)
	}
	return result
}
