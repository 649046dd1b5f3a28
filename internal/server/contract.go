package server

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

// FetchRequest 是被拦截请求的描述子：方法、URL 与头部，正文不在其中，
// 被拦截的分类实践上都是无正文的 GET。
type FetchRequest struct {
	Method string
	Path   string
	Query  string
	Accept string
	Header http.Header
}

// Identity 返回该请求的缓存标识。
func (r FetchRequest) Identity() cache.Identity {
	return cache.Identity{Method: r.Method, Path: r.Path, Query: r.Query}
}

// FetchResult 是策略执行的产物：最终响应快照与它的来源。
type FetchResult struct {
	Snapshot *cache.Snapshot
	Class    routeclass.Class
	Strategy routeclass.StrategyKind

	// Source 取 network/cache/fallback 之一。
	Source string
}

// FetchResolver 对一个已分类请求执行对应策略并产出最终响应。
// 接口化便于测试注入假实现。
type FetchResolver interface {
	Resolve(ctx context.Context, class routeclass.Class, req FetchRequest) (*FetchResult, error)
}

// Passthrough 处理不拦截的请求：原样转发源站，不碰缓存。
type Passthrough interface {
	Forward(c fiber.Ctx) error
}

// RequestClassifier 将请求归入路由分类。
type RequestClassifier interface {
	Classify(method, path, accept string) routeclass.Class
}

// 响应来源常量，供日志与指标复用。
const (
	SourceNetwork  = "network"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)
