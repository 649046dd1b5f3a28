package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFSPutAndMatch(t *testing.T) {
	gen := newTestGeneration(t)
	id := Identity{Method: http.MethodGet, Path: "/recipes/42"}

	snap := &Snapshot{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte("<html>beef stew</html>"),
	}
	if err := gen.Put(context.Background(), id, snap); err != nil {
		t.Fatalf("put error: %v", err)
	}

	got, err := gen.Match(context.Background(), id)
	if err != nil {
		t.Fatalf("match error: %v", err)
	}
	if got.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", got.StatusCode)
	}
	if string(got.Body) != string(snap.Body) {
		t.Fatalf("body mismatch: %s", string(got.Body))
	}
	if got.Header.Get("Content-Type") != "text/html; charset=utf-8" {
		t.Fatalf("header mismatch: %s", got.Header.Get("Content-Type"))
	}
}

func TestMatchMissing(t *testing.T) {
	gen := newTestGeneration(t)
	_, err := gen.Match(context.Background(), Identity{Method: http.MethodGet, Path: "/missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryStringKeepsEntriesApart(t *testing.T) {
	gen := newTestGeneration(t)
	bare := Identity{Method: http.MethodGet, Path: "/api/recipes"}
	filtered := Identity{Method: http.MethodGet, Path: "/api/recipes", Query: "tag=soup"}

	if err := gen.Put(context.Background(), bare, textSnapshot("all")); err != nil {
		t.Fatalf("put bare error: %v", err)
	}
	if err := gen.Put(context.Background(), filtered, textSnapshot("soup")); err != nil {
		t.Fatalf("put filtered error: %v", err)
	}

	got, err := gen.Match(context.Background(), filtered)
	if err != nil {
		t.Fatalf("match filtered error: %v", err)
	}
	if string(got.Body) != "soup" {
		t.Fatalf("filtered body mismatch: %s", string(got.Body))
	}

	got, err = gen.Match(context.Background(), bare)
	if err != nil {
		t.Fatalf("match bare error: %v", err)
	}
	if string(got.Body) != "all" {
		t.Fatalf("bare body mismatch: %s", string(got.Body))
	}
}

func TestListNamesAndDelete(t *testing.T) {
	accessor := newTestAccessor(t)
	ctx := context.Background()

	for _, name := range []string{"precache-v1.0.0", "runtime-v1.0.0"} {
		gen, err := accessor.Open(name)
		if err != nil {
			t.Fatalf("open %s error: %v", name, err)
		}
		id := Identity{Method: http.MethodGet, Path: "/"}
		if err := gen.Put(ctx, id, textSnapshot("shell")); err != nil {
			t.Fatalf("put error: %v", err)
		}
	}

	names, err := accessor.ListNames(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 generations, got %v", names)
	}

	if err := accessor.Delete(ctx, "precache-v1.0.0"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	names, err = accessor.ListNames(ctx)
	if err != nil {
		t.Fatalf("list after delete error: %v", err)
	}
	if len(names) != 1 || names[0] != "runtime-v1.0.0" {
		t.Fatalf("unexpected generations after delete: %v", names)
	}

	// 删除不存在的代不算错误。
	if err := accessor.Delete(ctx, "precache-v0.0.1"); err != nil {
		t.Fatalf("delete missing error: %v", err)
	}
}

func TestAddAllIsAllOrNothing(t *testing.T) {
	gen := newTestGeneration(t)
	ctx := context.Background()

	fetch := func(_ context.Context, path string) (*Snapshot, error) {
		if path == "/offline" {
			return nil, fmt.Errorf("connection refused")
		}
		return textSnapshot("asset " + path), nil
	}

	err := gen.AddAll(ctx, []string{"/", "/offline", "/static/logo.svg"}, fetch)
	if err == nil {
		t.Fatal("expected AddAll to fail when one fetch fails")
	}

	count, err := gen.Len(ctx)
	if err != nil {
		t.Fatalf("len error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no partial writes, got %d entries", count)
	}

	// 全部可达时一次性写入成功。
	ok := func(_ context.Context, path string) (*Snapshot, error) {
		return textSnapshot("asset " + path), nil
	}
	if err := gen.AddAll(ctx, []string{"/", "/offline"}, ok); err != nil {
		t.Fatalf("AddAll error: %v", err)
	}
	count, err = gen.Len(ctx)
	if err != nil {
		t.Fatalf("len error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	snap := textSnapshot("original")
	snap.Header = http.Header{"X-Test": []string{"a"}}

	dup := snap.Clone()
	dup.Body[0] = 'X'
	dup.Header.Set("X-Test", "b")

	if string(snap.Body) != "original" {
		t.Fatalf("clone mutated original body: %s", string(snap.Body))
	}
	if snap.Header.Get("X-Test") != "a" {
		t.Fatalf("clone mutated original header: %s", snap.Header.Get("X-Test"))
	}
}

// newTestAccessor 返回基于临时目录的磁盘后端。
func newTestAccessor(t *testing.T) Accessor {
	t.Helper()
	accessor, err := NewFSAccessor(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create accessor: %v", err)
	}
	return accessor
}

func newTestGeneration(t *testing.T) Generation {
	t.Helper()
	gen, err := newTestAccessor(t).Open("runtime-v1.0.0")
	if err != nil {
		t.Fatalf("failed to open generation: %v", err)
	}
	return gen
}

func textSnapshot(body string) *Snapshot {
	return &Snapshot{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte(body),
	}
}
