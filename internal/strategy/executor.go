// Package strategy 执行路由分类对应的取数策略，是整个拦截层的核心：
// network-first 优先保鲜、离线降级，cache-first 优先省流、缺失回源。
// 每个被拦截请求经历 classified → resolved 两个状态，解出响应或上抛
// 网络错误。
package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/lifecycle"
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
	"github.com/recipe-edge/recipe-edge/internal/server"
)

// originFetcher 抽象源站取数，便于测试注入假实现。
type originFetcher interface {
	Fetch(ctx context.Context, method, path, query string, header http.Header) (*cache.Snapshot, error)
}

// Executor 对已分类请求执行对应策略。缓存代句柄经 lifecycle 发布，
// 写入一律走后台队列，绝不阻塞响应路径。
type Executor struct {
	origin  originFetcher
	handles *lifecycle.Handles
	writer  *cache.BackgroundWriter
	logger  *logrus.Logger
}

// NewExecutor constructs the strategy executor; all dependencies are required.
func NewExecutor(origin originFetcher, handles *lifecycle.Handles, writer *cache.BackgroundWriter, logger *logrus.Logger) *Executor {
	return &Executor{
		origin:  origin,
		handles: handles,
		writer:  writer,
		logger:  logger,
	}
}

var _ server.FetchResolver = (*Executor)(nil)

// Resolve 实现 server.FetchResolver。
func (e *Executor) Resolve(ctx context.Context, class routeclass.Class, req server.FetchRequest) (*server.FetchResult, error) {
	desc, ok := routeclass.Resolve(class)
	if !ok {
		return nil, fmt.Errorf("route class %s is not registered", class)
	}

	switch desc.Strategy {
	case routeclass.StrategyNetworkFirst:
		return e.networkFirst(ctx, desc, req)
	case routeclass.StrategyCacheFirst:
		return e.cacheFirst(ctx, desc, req)
	default:
		return nil, fmt.Errorf("route class %s: unknown strategy %q", class, desc.Strategy)
	}
}

// networkFirst 先走网络，成功则后台存一份副本；失败依次回退到缓存条目、
// 分类兜底资源，双双落空时把网络错误上抛。
func (e *Executor) networkFirst(ctx context.Context, desc routeclass.Descriptor, req server.FetchRequest) (*server.FetchResult, error) {
	snap, fetchErr := e.origin.Fetch(ctx, req.Method, req.Path, req.Query, req.Header)
	if fetchErr == nil {
		e.storeClone(req, snap)
		return e.result(desc, snap, server.SourceNetwork), nil
	}
	e.logNetworkFailure(desc, req, fetchErr)

	if cached := e.lookup(ctx, req.Identity()); cached != nil {
		return e.result(desc, cached, server.SourceCache), nil
	}
	if fb := e.fallbackSnapshot(ctx, desc); fb != nil {
		return e.result(desc, fb, server.SourceFallback), nil
	}
	return nil, fetchErr
}

// cacheFirst 先查缓存，命中直接返回；未命中回源并后台存副本。网络失败时
// 只有声明了兜底资源的分类才降级，否则错误上抛。
func (e *Executor) cacheFirst(ctx context.Context, desc routeclass.Descriptor, req server.FetchRequest) (*server.FetchResult, error) {
	if cached := e.lookup(ctx, req.Identity()); cached != nil {
		return e.result(desc, cached, server.SourceCache), nil
	}

	snap, fetchErr := e.origin.Fetch(ctx, req.Method, req.Path, req.Query, req.Header)
	if fetchErr == nil {
		e.storeClone(req, snap)
		return e.result(desc, snap, server.SourceNetwork), nil
	}
	e.logNetworkFailure(desc, req, fetchErr)

	if fb := e.fallbackSnapshot(ctx, desc); fb != nil {
		return e.result(desc, fb, server.SourceFallback), nil
	}
	return nil, fetchErr
}

// lookup 依次在预缓存代与运行时代中查找条目，两代共享同一个请求标识空间。
func (e *Executor) lookup(ctx context.Context, id cache.Identity) *cache.Snapshot {
	for _, gen := range []cache.Generation{e.handles.Precache(), e.handles.Runtime()} {
		if gen == nil {
			continue
		}
		snap, err := gen.Match(ctx, id)
		if err == nil {
			return snap
		}
		if !errors.Is(err, cache.ErrNotFound) {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"action": "cache_match_failed",
				"key":    id.Key(),
			}).Warn("缓存读取失败，按未命中处理")
		}
	}
	return nil
}

// storeClone 把网络成功响应的独立副本排入后台写入队列。只有 GET 200
// 会被留存，返回给调用方的那份快照不受影响。
func (e *Executor) storeClone(req server.FetchRequest, snap *cache.Snapshot) {
	if req.Method != http.MethodGet || snap.StatusCode != http.StatusOK {
		return
	}
	runtime := e.handles.Runtime()
	if runtime == nil {
		return
	}
	e.writer.Enqueue(runtime, req.Identity(), snap.Clone())
}

// fallbackSnapshot 取分类声明的兜底资源，兜底一律存放在预缓存代。
func (e *Executor) fallbackSnapshot(ctx context.Context, desc routeclass.Descriptor) *cache.Snapshot {
	if !desc.HasFallback() {
		return nil
	}
	precache := e.handles.Precache()
	if precache == nil {
		return nil
	}

	snap, err := precache.Match(ctx, cache.Identity{Method: http.MethodGet, Path: desc.FallbackPath})
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"action": "fallback_missing",
			"class":  string(desc.Key),
			"path":   desc.FallbackPath,
		}).Error("兜底资源不在预缓存中")
		return nil
	}
	return snap
}

func (e *Executor) result(desc routeclass.Descriptor, snap *cache.Snapshot, source string) *server.FetchResult {
	return &server.FetchResult{
		Snapshot: snap,
		Class:    desc.Key,
		Strategy: desc.Strategy,
		Source:   source,
	}
}

func (e *Executor) logNetworkFailure(desc routeclass.Descriptor, req server.FetchRequest, err error) {
	e.logger.WithError(err).WithFields(logrus.Fields{
		"action": "origin_fetch_failed",
		"class":  string(desc.Key),
		"path":   req.Path,
	}).Debug("源站取数失败，尝试降级")
}
