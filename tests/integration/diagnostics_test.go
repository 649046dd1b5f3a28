package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/recipe-edge/recipe-edge/internal/cache"
)

func TestGenerationsEndpointReportsCurrentState(t *testing.T) {
	origin := newOriginStub(t)
	env := newEdgeEnv(t, origin, cache.NewMemoryAccessor(), "v1.0.0")

	resp := env.get(t, "/-/generations", "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Recipe-Edge-Class"); got != "" {
		t.Fatalf("diagnostics should bypass classification, got class %q", got)
	}

	var payload struct {
		Version      string `json:"version"`
		CacheVersion string `json:"cache_version"`
		Generations  []struct {
			Name    string `json:"name"`
			Entries int    `json:"entries"`
		} `json:"generations"`
	}
	if err := json.Unmarshal([]byte(readBody(t, resp)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.CacheVersion != "v1.0.0" {
		t.Fatalf("cache_version = %q", payload.CacheVersion)
	}
	if !strings.Contains(payload.Version, "recipe-edge") {
		t.Fatalf("version = %q", payload.Version)
	}

	seen := map[string]int{}
	for _, gen := range payload.Generations {
		seen[gen.Name] = gen.Entries
	}
	if entries, ok := seen[cache.PrecacheName("v1.0.0")]; !ok || entries == 0 {
		t.Fatalf("precache generation missing or empty: %v", seen)
	}
	if _, ok := seen[cache.RuntimeName("v1.0.0")]; !ok {
		t.Fatalf("runtime generation missing: %v", seen)
	}
}
