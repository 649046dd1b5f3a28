// Package media 注册媒体资源类请求的路由策略：cache-first，正文大且少变，
// 网络失败时退回预缓存的占位图。
package media

import (
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

func init() {
	routeclass.MustRegister(routeclass.Descriptor{
		Key:          routeclass.ClassMedia,
		Description:  "uploaded dish photos under the media prefix; cache first, logo placeholder on failure",
		Strategy:     routeclass.StrategyCacheFirst,
		FallbackPath: "/static/logo.svg",
	})
}
