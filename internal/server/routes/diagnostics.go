// Package routes 注册 /-/ 前缀下的诊断接口，这些路径不参与请求拦截。
package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/observe"
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
	"github.com/recipe-edge/recipe-edge/internal/version"
)

// DiagnosticsOptions 汇总诊断接口需要的依赖。
type DiagnosticsOptions struct {
	Accessor     cache.Accessor
	Observer     *observe.Observer
	CacheVersion string
}

// RegisterDiagnosticsRoutes 暴露 /-/generations 与 /-/metrics，
// 供 SRE 查询缓存代状态与运行指标。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil {
		return
	}

	app.Get("/-/generations", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return c.JSON(fiber.Map{
			"version":       version.Full(),
			"cache_version": opts.CacheVersion,
			"generations":   encodeGenerations(ctx, opts.Accessor),
			"route_classes": encodeRouteClasses(),
		})
	})

	if opts.Observer != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(opts.Observer.Handler()))
	}
}

func encodeGenerations(ctx context.Context, accessor cache.Accessor) []fiber.Map {
	if accessor == nil {
		return nil
	}

	names, err := accessor.ListNames(ctx)
	if err != nil {
		return []fiber.Map{{"error": err.Error()}}
	}

	result := make([]fiber.Map, 0, len(names))
	for _, name := range names {
		item := fiber.Map{"name": name}
		if gen, err := accessor.Open(name); err == nil {
			if count, err := gen.Len(ctx); err == nil {
				item["entries"] = count
			}
		}
		result = append(result, item)
	}
	return result
}

func encodeRouteClasses() []fiber.Map {
	classes := routeclass.List()
	result := make([]fiber.Map, 0, len(classes))
	for _, desc := range classes {
		result = append(result, fiber.Map{
			"key":         string(desc.Key),
			"strategy":    string(desc.Strategy),
			"fallback":    desc.FallbackPath,
			"description": desc.Description,
		})
	}
	return result
}
