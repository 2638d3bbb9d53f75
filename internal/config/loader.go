package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// defaultExtensions 是未显式配置时允许透传的文本资源扩展名。
var defaultExtensions = []string{
	".sh", ".bash", ".ps1", ".py",
	".txt", ".json", ".yml", ".yaml", ".toml", ".conf",
}

// Load 读取并解析 TOML 配置文件，同时注入默认值、环境变量覆盖与校验逻辑。
// 当 path 指向默认位置且文件不存在时，允许仅凭 RAW_RELAY_* 环境变量启动。
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("RAW_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		missing := errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
		if explicit || !missing {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	normalizeResources(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// AuthToken/RawBaseURL 注册空默认值，确保纯环境变量启动时 Unmarshal 能看到键。
	v.SetDefault("AuthToken", "")
	v.SetDefault("RawBaseURL", "")
	v.SetDefault("ListenPort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheTTL", "60s")
	v.SetDefault("OriginTimeout", "10s")
	v.SetDefault("AllowedExtensions", defaultExtensions)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 8080
	}
	if g.CacheTTL.DurationValue() == 0 {
		g.CacheTTL = Duration(time.Minute)
	}
	if g.OriginTimeout.DurationValue() == 0 {
		g.OriginTimeout = Duration(10 * time.Second)
	}
	if len(g.Extensions) == 0 {
		g.Extensions = append([]string(nil), defaultExtensions...)
	}
	g.RawBaseURL = strings.TrimRight(strings.TrimSpace(g.RawBaseURL), "/")
}

func normalizeResources(cfg *Config) {
	for i := range cfg.Resources {
		res := &cfg.Resources[i]
		res.Name = strings.ToLower(strings.TrimSpace(res.Name))
		res.Path = strings.TrimSpace(res.Path)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
