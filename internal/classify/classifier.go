// Package classify 将被拦截的请求归入五个路由分类之一，首个命中规则生效：
// HTML 跳转 → 媒体前缀 → 静态前缀 → API 只读 → passthrough。
package classify

import (
	"net/http"
	"strings"

	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

// Classifier 持有三组路径前缀，全部来自配置。分类是无状态的纯函数，
// 结果只在单次请求内有效，不落盘。
type Classifier struct {
	mediaPrefixes  []string
	staticPrefixes []string
	apiPrefixes    []string
}

// New 构造分类器，前缀列表直接取配置值。
func New(mediaPrefixes, staticPrefixes, apiPrefixes []string) *Classifier {
	return &Classifier{
		mediaPrefixes:  mediaPrefixes,
		staticPrefixes: staticPrefixes,
		apiPrefixes:    apiPrefixes,
	}
}

// Classify 根据方法、路径与 Accept 头给出分类。非 GET 的 API 写请求不拦截，
// 离线写入排队是调用方应用自己的职责。
func (c *Classifier) Classify(method, path, accept string) routeclass.Class {
	isGet := method == http.MethodGet

	if isGet && acceptsHTML(accept) {
		return routeclass.ClassNavigation
	}
	if hasAnyPrefix(path, c.mediaPrefixes) {
		return routeclass.ClassMedia
	}
	if hasAnyPrefix(path, c.staticPrefixes) {
		return routeclass.ClassStatic
	}
	if isGet && hasAnyPrefix(path, c.apiPrefixes) {
		return routeclass.ClassAPIRead
	}
	return routeclass.ClassPassthrough
}

// acceptsHTML 判断 Accept 头是否声明接受 HTML 文档，即页面跳转请求。
func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(part)
		if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
			mediaType = strings.TrimSpace(mediaType[:idx])
		}
		switch strings.ToLower(mediaType) {
		case "text/html", "application/xhtml+xml":
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
