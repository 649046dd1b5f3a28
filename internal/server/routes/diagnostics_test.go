package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/observe"

	_ "github.com/recipe-edge/recipe-edge/internal/routeclass/navigation"
)

func TestGenerationsEndpoint(t *testing.T) {
	accessor := cache.NewMemoryAccessor()
	gen, err := accessor.Open("precache-v2.0.0")
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	id := cache.Identity{Method: http.MethodGet, Path: "/"}
	snap := &cache.Snapshot{StatusCode: 200, Header: http.Header{}, Body: []byte("shell")}
	if err := gen.Put(context.Background(), id, snap); err != nil {
		t.Fatalf("put error: %v", err)
	}

	app := fiber.New()
	RegisterDiagnosticsRoutes(app, DiagnosticsOptions{
		Accessor:     accessor,
		Observer:     observe.Disabled(),
		CacheVersion: "v2.0.0",
	})

	resp, err := app.Test(httptest.NewRequest("GET", "http://edge.local/-/generations", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var payload struct {
		CacheVersion string `json:"cache_version"`
		Generations  []struct {
			Name    string `json:"name"`
			Entries int    `json:"entries"`
		} `json:"generations"`
		RouteClasses []struct {
			Key string `json:"key"`
		} `json:"route_classes"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode error: %v\n%s", err, raw)
	}

	if payload.CacheVersion != "v2.0.0" {
		t.Fatalf("cache version mismatch: %s", payload.CacheVersion)
	}
	if len(payload.Generations) != 1 || payload.Generations[0].Name != "precache-v2.0.0" || payload.Generations[0].Entries != 1 {
		t.Fatalf("generations mismatch: %+v", payload.Generations)
	}
	if len(payload.RouteClasses) == 0 {
		t.Fatalf("route classes missing: %s", raw)
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	observer, err := observe.New()
	if err != nil {
		t.Fatalf("observer error: %v", err)
	}

	app := fiber.New()
	RegisterDiagnosticsRoutes(app, DiagnosticsOptions{
		Accessor:     cache.NewMemoryAccessor(),
		Observer:     observer,
		CacheVersion: "v1.0.0",
	})

	resp, err := app.Test(httptest.NewRequest("GET", "http://edge.local/-/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}
