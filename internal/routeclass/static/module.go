// Package static 注册静态资源类请求的路由策略：cache-first，网络失败不兜底，
// 错误原样上抛（与 media 的不对称是沿用原始行为，见 DESIGN.md）。
package static

import (
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

func init() {
	routeclass.MustRegister(routeclass.Descriptor{
		Key:         routeclass.ClassStatic,
		Description: "shell assets under the static prefix; cache first, no network-failure fallback",
		Strategy:    routeclass.StrategyCacheFirst,
	})
}
