// Package navigation 注册 HTML 页面跳转类请求的路由策略：network-first，
// 网络不可用时回退到预缓存的离线页。
package navigation

import (
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

func init() {
	routeclass.MustRegister(routeclass.Descriptor{
		Key:          routeclass.ClassNavigation,
		Description:  "GET requests accepting text/html; freshness first, offline page as last resort",
		Strategy:     routeclass.StrategyNetworkFirst,
		FallbackPath: "/offline",
	})
}
