package cache

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// populateAll 是各后端共享的 AddAll 实现：先并发抓取全部路径，任一失败则
// 整体放弃；全部成功后才开始写入，保证不会留下部分预缓存。
func populateAll(ctx context.Context, gen Generation, paths []string, fetch Fetcher) error {
	if fetch == nil {
		return fmt.Errorf("fetcher required")
	}

	var mu sync.Mutex
	fetched := make(map[string]*Snapshot, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, path := range paths {
		group.Go(func() error {
			snap, err := fetch(groupCtx, path)
			if err != nil {
				return fmt.Errorf("precache %s: %w", path, err)
			}
			if snap.StatusCode != http.StatusOK {
				return fmt.Errorf("precache %s: unexpected status %d", path, snap.StatusCode)
			}
			mu.Lock()
			fetched[path] = snap
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, path := range paths {
		id := Identity{Method: http.MethodGet, Path: path}
		if err := gen.Put(ctx, id, fetched[path]); err != nil {
			return fmt.Errorf("precache write %s: %w", path, err)
		}
	}
	return nil
}
