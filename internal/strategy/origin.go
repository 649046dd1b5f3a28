package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/server"
)

// OriginClient 负责向源站发起取数，并把响应整体读成可重放的快照。
// 快照读入内存后，返回给调用方与写入缓存的是两份独立副本。
type OriginClient struct {
	client *http.Client
	base   *url.URL
}

// NewOriginClient 构造指向固定源站的取数客户端。
func NewOriginClient(client *http.Client, originURL string) (*OriginClient, error) {
	base, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid origin url: %s", originURL)
	}
	return &OriginClient{client: client, base: base}, nil
}

// Fetch 向源站请求一个路径并返回完整快照。网络层失败返回错误；
// 任何 HTTP 状态都算网络成功，如何处置由策略决定。
func (o *OriginClient) Fetch(ctx context.Context, method, path, query string, header http.Header) (*cache.Snapshot, error) {
	target := *o.base
	target.Path = path
	target.RawQuery = query

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	server.CopyHeaders(req.Header, header)
	req.Header.Del("Host")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("origin fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read origin body %s: %w", path, err)
	}

	return &cache.Snapshot{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// Fetcher 把客户端适配成预缓存安装用的 cache.Fetcher。
func (o *OriginClient) Fetcher() cache.Fetcher {
	return func(ctx context.Context, path string) (*cache.Snapshot, error) {
		return o.Fetch(ctx, http.MethodGet, path, "", nil)
	}
}
