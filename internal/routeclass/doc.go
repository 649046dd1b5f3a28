// Package routeclass 聚合被拦截请求的路由分类，并提供统一的注册入口。
//
// 新增分类需要：
//  1. 在 internal/routeclass/<class-key>/ 目录下声明分类描述；
//  2. 通过本包暴露的 Register 函数在 init() 中注册；
//  3. 若声明了 FallbackPath，必须同时把该资源加入预缓存清单，
//     配置校验会强制这一点。
//
// passthrough 不在注册表内：它表示请求完全不被拦截。
package routeclass
