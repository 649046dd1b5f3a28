package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

var supportedBackends = map[string]struct{}{
	"fs":     {},
	"sqlite": {},
}

// 版本串会拼进缓存代名字并可能落为目录名，限制为安全字符集。
var cacheVersionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	backend := strings.ToLower(strings.TrimSpace(g.StorageBackend))
	if _, ok := supportedBackends[backend]; !ok {
		return newFieldError("StorageBackend", "仅支持 fs/sqlite")
	}
	c.Global.StorageBackend = backend

	if !cacheVersionPattern.MatchString(g.CacheVersion) {
		return newFieldError("CacheVersion", "仅允许字母、数字、点、横线与下划线")
	}
	if err := validateOrigin(g.OriginURL); err != nil {
		return fmt.Errorf("OriginURL: %w", err)
	}
	if g.OriginTimeout.DurationValue() <= 0 {
		return newFieldError("OriginTimeout", "必须大于 0")
	}
	if g.RuntimeMaxEntries < 0 {
		return newFieldError("RuntimeMaxEntries", "不能为负数")
	}
	if g.WriteQueueSize <= 0 {
		return newFieldError("WriteQueueSize", "必须大于 0")
	}

	if len(c.Precache) == 0 {
		return newFieldError("Precache", "至少需要一个预缓存路径")
	}
	manifest := map[string]struct{}{}
	for _, path := range c.Precache {
		if !strings.HasPrefix(path, "/") {
			return newFieldError("Precache", fmt.Sprintf("路径必须以 / 开头: %s", path))
		}
		if _, dup := manifest[path]; dup {
			return newFieldError("Precache", fmt.Sprintf("路径重复: %s", path))
		}
		manifest[path] = struct{}{}
	}

	for _, group := range []struct {
		field    string
		prefixes []string
	}{
		{"Routes.MediaPrefixes", c.Routes.MediaPrefixes},
		{"Routes.StaticPrefixes", c.Routes.StaticPrefixes},
		{"Routes.APIPrefixes", c.Routes.APIPrefixes},
	} {
		if len(group.prefixes) == 0 {
			return newFieldError(group.field, "不能为空")
		}
		for _, prefix := range group.prefixes {
			if !strings.HasPrefix(prefix, "/") {
				return newFieldError(group.field, fmt.Sprintf("前缀必须以 / 开头: %s", prefix))
			}
		}
	}

	// 已注册分类声明的兜底资源必须在预缓存清单里，否则离线兜底必然落空。
	for _, desc := range routeclass.List() {
		if !desc.HasFallback() {
			continue
		}
		if _, ok := manifest[desc.FallbackPath]; !ok {
			return newFieldError("Precache",
				fmt.Sprintf("缺少 %s 分类的兜底资源: %s", desc.Key, desc.FallbackPath))
		}
	}

	return nil
}

func validateOrigin(raw string) error {
	if raw == "" {
		return errors.New("缺少源站地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}
