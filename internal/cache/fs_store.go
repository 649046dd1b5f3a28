package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// NewFSAccessor 以 basePath 为根目录构建磁盘后端，每个缓存代对应一个子目录，
// 整个进程复用一份实例。
func NewFSAccessor(basePath string) (Accessor, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fsAccessor{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

var generationNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// fsAccessor 通过 entryLock 避免同一条目并发写入，锁表为全部代共享。
type fsAccessor struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (a *fsAccessor) Open(name string) (Generation, error) {
	if !generationNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid generation name: %q", name)
	}
	dir := filepath.Join(a.basePath, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create generation dir: %w", err)
	}
	return &fsGeneration{accessor: a, name: name, dir: dir}, nil
}

func (a *fsAccessor) ListNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.basePath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (a *fsAccessor) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !generationNamePattern.MatchString(name) {
		return fmt.Errorf("invalid generation name: %q", name)
	}
	return os.RemoveAll(filepath.Join(a.basePath, name))
}

// fsGeneration 将条目按 URL 路径落盘；带查询串的请求追加 __qs-<sha1> 后缀，
// 避免文件名里的非法字符。
type fsGeneration struct {
	accessor *fsAccessor
	name     string
	dir      string
}

func (g *fsGeneration) Match(ctx context.Context, id Identity) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := g.entryPath(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeSnapshot(raw)
}

func (g *fsGeneration) Put(ctx context.Context, id Identity, snap *Snapshot) error {
	unlock := g.accessor.lockEntry(g.name, id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := g.entryPath(id)
	if err != nil {
		return err
	}

	raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(raw)
	closeErr := tempFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempName)
		return writeErr
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (g *fsGeneration) AddAll(ctx context.Context, paths []string, fetch Fetcher) error {
	return populateAll(ctx, g, paths, fetch)
}

func (g *fsGeneration) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := filepath.WalkDir(g.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !strings.HasPrefix(d.Name(), ".cache-") {
			count++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// entryPath 将请求标识映射为代目录下的文件路径，并防止路径穿越。
func (g *fsGeneration) entryPath(id Identity) (string, error) {
	rel := id.Path
	if rel == "" || rel == "/" {
		rel = "root"
	}
	rel = path.Clean("/" + rel)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		rel = "root"
	}

	if id.Query != "" {
		// 同一路径可能同时存在带查询与不带查询的条目，后缀保持两者互不覆盖。
		digest := sha1.Sum([]byte(id.Query))
		rel += "__qs-" + hex.EncodeToString(digest[:])
	}

	filePath := filepath.Join(g.dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(filePath, g.dir) {
		return "", errors.New("invalid cache path")
	}
	return filePath, nil
}

func (a *fsAccessor) lockEntry(generation string, id Identity) func() {
	key := generation + "::" + id.Key()
	a.mu.Lock()
	lock := a.locks[key]
	if lock == nil {
		lock = &entryLock{}
		a.locks[key] = lock
	}
	lock.refs++
	a.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		a.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(a.locks, key)
		}
		a.mu.Unlock()
	}
}
