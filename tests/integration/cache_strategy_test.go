package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/recipe-edge/recipe-edge/internal/cache"
)

func TestPrecachedAssetNeverGoesBackToOrigin(t *testing.T) {
	origin := newOriginStub(t)
	env := newEdgeEnv(t, origin, cache.NewMemoryAccessor(), "v1.0.0")

	installHits := origin.hitCount("/static/logo.svg")

	for i := 0; i < 2; i++ {
		resp := env.get(t, "/static/logo.svg", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if got := resp.Header.Get("X-Recipe-Edge-Cache"); got != "cache" {
			t.Fatalf("cache header = %q, want cache", got)
		}
		if body := readBody(t, resp); body != "<svg>logo</svg>" {
			t.Fatalf("body = %q", body)
		}
	}

	if got := origin.hitCount("/static/logo.svg"); got != installHits {
		t.Fatalf("origin hits = %d, want %d (no runtime fetch)", got, installHits)
	}
}

func TestColdStaticAssetFetchedOnceThenReplayed(t *testing.T) {
	origin := newOriginStub(t)
	env := newEdgeEnv(t, origin, cache.NewMemoryAccessor(), "v1.0.0")

	first := env.get(t, "/static/app.css", "")
	if got := first.Header.Get("X-Recipe-Edge-Cache"); got != "network" {
		t.Fatalf("first cache header = %q, want network", got)
	}
	if body := readBody(t, first); body != "body{color:#333}" {
		t.Fatalf("first body = %q", body)
	}
	env.writer.Flush()

	second := env.get(t, "/static/app.css", "")
	if got := second.Header.Get("X-Recipe-Edge-Cache"); got != "cache" {
		t.Fatalf("second cache header = %q, want cache", got)
	}
	if body := readBody(t, second); body != "body{color:#333}" {
		t.Fatalf("second body = %q", body)
	}
	if got := origin.hitCount("/static/app.css"); got != 1 {
		t.Fatalf("origin hits = %d, want 1", got)
	}
}

func TestNavigationServesNetworkCopyAndStoresClone(t *testing.T) {
	origin := newOriginStub(t)
	env := newEdgeEnv(t, origin, cache.NewMemoryAccessor(), "v1.0.0")

	resp := env.get(t, "/recipes/8", browserAccept)
	if got := resp.Header.Get("X-Recipe-Edge-Class"); got != "navigation" {
		t.Fatalf("class header = %q, want navigation", got)
	}
	if got := resp.Header.Get("X-Recipe-Edge-Cache"); got != "network" {
		t.Fatalf("cache header = %q, want network", got)
	}
	if body := readBody(t, resp); body != "<html>Braised pork</html>" {
		t.Fatalf("body = %q", body)
	}

	env.writer.Flush()
	runtime := env.manager.Claim().Runtime()
	snap, err := runtime.Match(context.Background(), cache.Identity{Method: "GET", Path: "/recipes/8"})
	if err != nil {
		t.Fatalf("runtime match error: %v", err)
	}
	if string(snap.Body) != "<html>Braised pork</html>" {
		t.Fatalf("stored body = %q", snap.Body)
	}
}

func TestAPIReadPopulatesRuntimeGeneration(t *testing.T) {
	origin := newOriginStub(t)
	env := newEdgeEnv(t, origin, cache.NewMemoryAccessor(), "v1.0.0")

	resp := env.get(t, "/api/recipes", "application/json")
	if got := resp.Header.Get("X-Recipe-Edge-Class"); got != "api-read" {
		t.Fatalf("class header = %q, want api-read", got)
	}
	if got := resp.Header.Get("X-Recipe-Edge-Cache"); got != "network" {
		t.Fatalf("cache header = %q, want network", got)
	}
	body := readBody(t, resp)
	env.writer.Flush()

	env.goOffline()
	replay := env.get(t, "/api/recipes", "application/json")
	if got := replay.Header.Get("X-Recipe-Edge-Cache"); got != "cache" {
		t.Fatalf("replay cache header = %q, want cache", got)
	}
	if replayed := readBody(t, replay); replayed != body {
		t.Fatalf("replayed body = %q, want %q", replayed, body)
	}
}
