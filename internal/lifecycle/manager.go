// Package lifecycle 驱动缓存代的生命周期：install 预取应用外壳，activate
// 清理过期缓存代并发布当前代句柄。两步都必须在对外服务之前完成。
package lifecycle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/logging"
)

// Manager 负责 install/activate 两个生命周期步骤。accessor 与 fetcher
// 由进程启动时注入。
type Manager struct {
	accessor cache.Accessor
	fetch    cache.Fetcher
	logger   *logrus.Logger
	version  string

	handles Handles
}

// Handles 发布当前版本的缓存代句柄。指针原子交换对应 clients.claim：
// 一旦发布，后续请求立刻经由新版本的缓存代。
type Handles struct {
	pair atomic.Pointer[generationPair]
}

type generationPair struct {
	precache cache.Generation
	runtime  cache.Generation
}

// Precache 返回当前已发布的预缓存代；激活前为 nil。
func (h *Handles) Precache() cache.Generation {
	if pair := h.pair.Load(); pair != nil {
		return pair.precache
	}
	return nil
}

// Runtime 返回当前已发布的运行时缓存代；激活前为 nil。
func (h *Handles) Runtime() cache.Generation {
	if pair := h.pair.Load(); pair != nil {
		return pair.runtime
	}
	return nil
}

// NewManager 构造生命周期管理器。
func NewManager(accessor cache.Accessor, fetch cache.Fetcher, logger *logrus.Logger, version string) *Manager {
	return &Manager{
		accessor: accessor,
		fetch:    fetch,
		logger:   logger,
		version:  version,
	}
}

// Install 打开当前版本的预缓存代并整体预取清单资源。任一资源抓取失败则
// 整个安装失败：残缺的预缓存比没有更糟，调用方此时不应开始对外服务。
func (m *Manager) Install(ctx context.Context, manifest []string) error {
	name := cache.PrecacheName(m.version)
	gen, err := m.accessor.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	if err := gen.AddAll(ctx, manifest, m.fetch); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	fields := logging.LifecycleFields("install", m.version)
	fields["assets"] = len(manifest)
	m.logger.WithFields(fields).Info("预缓存安装完成")
	return nil
}

// Activate 枚举全部缓存代，删除不属于当前版本的所有代，然后发布当前代句柄。
// 重复激活是幂等的：第二次不会再删除任何东西。
func (m *Manager) Activate(ctx context.Context) error {
	keep := cache.CurrentNames(m.version)

	names, err := m.accessor.ListNames(ctx)
	if err != nil {
		return fmt.Errorf("list generations: %w", err)
	}

	deleted := 0
	for _, name := range names {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := m.accessor.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete stale generation %s: %w", name, err)
		}
		deleted++
	}

	precache, err := m.accessor.Open(cache.PrecacheName(m.version))
	if err != nil {
		return fmt.Errorf("open precache generation: %w", err)
	}
	runtime, err := m.accessor.Open(cache.RuntimeName(m.version))
	if err != nil {
		return fmt.Errorf("open runtime generation: %w", err)
	}
	m.handles.pair.Store(&generationPair{precache: precache, runtime: runtime})

	fields := logging.LifecycleFields("activate", m.version)
	fields["deleted"] = deleted
	m.logger.WithFields(fields).Info("过期缓存代清理完成")
	return nil
}

// Claim 返回已发布的缓存代句柄，请求路径经由它读取当前代。
func (m *Manager) Claim() *Handles {
	return &m.handles
}
