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

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// CacheVersion 是缓存代的版本标签，版本变化触发旧代清理。
	CacheVersion string `mapstructure:"CacheVersion"`

	StoragePath    string `mapstructure:"StoragePath"`
	StorageBackend string `mapstructure:"StorageBackend"`

	// OriginURL 是被代理的源站应用地址，所有网络取数都指向它。
	OriginURL     string   `mapstructure:"OriginURL"`
	OriginTimeout Duration `mapstructure:"OriginTimeout"`

	// RuntimeMaxEntries 限制运行时缓存代条目数，0 表示不设限。
	RuntimeMaxEntries int `mapstructure:"RuntimeMaxEntries"`
	WriteQueueSize    int `mapstructure:"WriteQueueSize"`

	MetricsEnabled bool `mapstructure:"MetricsEnabled"`
}

// RoutesConfig 定义三组分类前缀，默认值与源站的挂载路径保持一致。
type RoutesConfig struct {
	MediaPrefixes  []string `mapstructure:"MediaPrefixes"`
	StaticPrefixes []string `mapstructure:"StaticPrefixes"`
	APIPrefixes    []string `mapstructure:"APIPrefixes"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig `mapstructure:",squash"`
	Precache []string     `mapstructure:"Precache"`
	Routes   RoutesConfig `mapstructure:"Routes"`
}
