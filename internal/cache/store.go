package cache

import (
	"context"
	"errors"
	"net/http"
)

// Accessor 管理按名字寻址的缓存代（generation）。实现由进程启动时注入，
// 测试可替换为内存实现。
type Accessor interface {
	// Open 打开（必要时创建）指定名字的缓存代。
	Open(name string) (Generation, error)

	// ListNames 枚举当前存在的所有缓存代名字。
	ListNames(ctx context.Context) ([]string, error)

	// Delete 整体删除一个缓存代及其全部条目。删除不存在的代不算错误。
	Delete(ctx context.Context, name string) error
}

// Generation 表示一个独立的条目集合，条目以请求标识为键。
type Generation interface {
	// Match 返回请求标识对应的响应快照。不存在时返回 ErrNotFound。
	Match(ctx context.Context, id Identity) (*Snapshot, error)

	// Put 写入（或覆盖）一个响应快照。实现需保证写入原子性。
	Put(ctx context.Context, id Identity, snap *Snapshot) error

	// AddAll 以 all-or-nothing 语义预取并写入一组路径：任一路径抓取失败时
	// 整个操作失败，且不留下部分写入。
	AddAll(ctx context.Context, paths []string, fetch Fetcher) error

	// Len 返回当前条目数量，供容量策略与诊断端使用。
	Len(ctx context.Context) (int, error)
}

// Fetcher 抓取一个路径的上游响应快照，由 lifecycle 安装流程注入。
type Fetcher func(ctx context.Context, path string) (*Snapshot, error)

// Identity 唯一标识一个可缓存请求（实践中仅 GET 会被写入）。
type Identity struct {
	Method string
	Path   string
	Query  string
}

// Key 返回稳定的字符串键，供内存/SQLite 后端作为主键使用。
func (id Identity) Key() string {
	key := id.Method + " " + id.Path
	if id.Query != "" {
		key += "?" + id.Query
	}
	return key
}

// Snapshot 是响应的完整可重放副本。Body 为全量字节，读取不消耗快照本身。
type Snapshot struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Clone 返回完全独立的副本，调用方与缓存各持一份，互不影响。
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		StatusCode: s.StatusCode,
		Header:     s.Header.Clone(),
		Body:       append([]byte(nil), s.Body...),
	}
}

// ErrNotFound 表示缓存代中不存在对应条目。
var ErrNotFound = errors.New("cache entry not found")
