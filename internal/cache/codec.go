package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// encodeSnapshot 将快照序列化为 HTTP/1.1 响应线格式，直接复用标准库的
// Response.Write / ReadResponse 往返，避免自造编码。
func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}

	res := &http.Response{
		StatusCode:    snap.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        snap.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(snap.Body)),
		ContentLength: int64(len(snap.Body)),
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	// Transfer-Encoding 由 ContentLength 决定，存量头会干扰 ReadResponse。
	res.Header.Del("Transfer-Encoding")

	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSnapshot 从线格式还原快照，正文整体读入内存以保证可重放。
func decodeSnapshot(raw []byte) (*Snapshot, error) {
	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot body: %w", err)
	}

	res.Header.Del("Transfer-Encoding")
	return &Snapshot{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
	}, nil
}
