package cache

import (
	"context"
	"sort"
	"sync"
)

// NewMemoryAccessor 返回纯内存后端，条目随进程消失。主要供测试注入，
// 也可用于不落盘的临时部署。
func NewMemoryAccessor() Accessor {
	return &memoryAccessor{
		generations: make(map[string]map[string]*Snapshot),
	}
}

type memoryAccessor struct {
	mu          sync.RWMutex
	generations map[string]map[string]*Snapshot
}

func (a *memoryAccessor) Open(name string) (Generation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.generations[name]; !ok {
		a.generations[name] = make(map[string]*Snapshot)
	}
	return &memoryGeneration{accessor: a, name: name}, nil
}

func (a *memoryAccessor) ListNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.generations))
	for name := range a.generations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (a *memoryAccessor) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.generations, name)
	return nil
}

type memoryGeneration struct {
	accessor *memoryAccessor
	name     string
}

func (g *memoryGeneration) Match(ctx context.Context, id Identity) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.accessor.mu.RLock()
	defer g.accessor.mu.RUnlock()
	entries, ok := g.accessor.generations[g.name]
	if !ok {
		return nil, ErrNotFound
	}
	snap, ok := entries[id.Key()]
	if !ok {
		return nil, ErrNotFound
	}
	// 返回副本，避免调用方改动缓存内的快照。
	return snap.Clone(), nil
}

func (g *memoryGeneration) Put(ctx context.Context, id Identity, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.accessor.mu.Lock()
	defer g.accessor.mu.Unlock()
	entries, ok := g.accessor.generations[g.name]
	if !ok {
		entries = make(map[string]*Snapshot)
		g.accessor.generations[g.name] = entries
	}
	entries[id.Key()] = snap.Clone()
	return nil
}

func (g *memoryGeneration) AddAll(ctx context.Context, paths []string, fetch Fetcher) error {
	return populateAll(ctx, g, paths, fetch)
}

func (g *memoryGeneration) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g.accessor.mu.RLock()
	defer g.accessor.mu.RUnlock()
	return len(g.accessor.generations[g.name]), nil
}
