// Package apiread 注册 API 只读请求的路由策略：network-first，离线时回放
// 运行时缓存中的最近一次成功响应，没有缓存则错误上抛。
package apiread

import (
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

func init() {
	routeclass.MustRegister(routeclass.Descriptor{
		Key:         routeclass.ClassAPIRead,
		Description: "GET requests to the API prefixes; freshness first, cached replay when offline",
		Strategy:    routeclass.StrategyNetworkFirst,
	})
}
