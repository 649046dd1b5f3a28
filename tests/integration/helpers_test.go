package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/cache"
	"github.com/recipe-edge/recipe-edge/internal/classify"
	"github.com/recipe-edge/recipe-edge/internal/config"
	"github.com/recipe-edge/recipe-edge/internal/lifecycle"
	"github.com/recipe-edge/recipe-edge/internal/server"
	"github.com/recipe-edge/recipe-edge/internal/server/routes"
	"github.com/recipe-edge/recipe-edge/internal/strategy"
)

// originStub 模拟 CookShare 源站：应用外壳、静态资源、媒体与 recipes API，
// 并按路径计数，供“命中缓存不回源”类断言使用。
type originStub struct {
	server *httptest.Server

	mu    sync.Mutex
	hits  map[string]int
	posts []string
}

func newOriginStub(t *testing.T) *originStub {
	t.Helper()
	stub := &originStub{hits: map[string]int{}}

	mux := http.NewServeMux()
	serve := func(path, contentType, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			stub.record(r)
			w.Header().Set("Content-Type", contentType)
			io.WriteString(w, body)
		})
	}
	serve("/{$}", "text/html; charset=utf-8", "<html>CookShare shell</html>")
	serve("/offline", "text/html; charset=utf-8", "<html>You are offline</html>")
	serve("/static/logo.svg", "image/svg+xml", "<svg>logo</svg>")
	serve("/static/icons/icon-192.png", "image/png", "png-192")
	serve("/static/icons/icon-512.png", "image/png", "png-512")
	serve("/static/app.css", "text/css", "body{color:#333}")
	serve("/manifest.json", "application/json", `{"name":"CookShare"}`)
	serve("/favicon.ico", "image/x-icon", "ico")
	serve("/media/photos/stew.jpg", "image/jpeg", "jpeg-bytes-stew")
	serve("/recipes/8", "text/html; charset=utf-8", "<html>Braised pork</html>")

	mux.HandleFunc("/api/recipes", func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			stub.mu.Lock()
			stub.posts = append(stub.posts, string(body))
			stub.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":99}`)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "name": "beef stew"}})
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *originStub) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[r.URL.Path]++
}

func (s *originStub) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// edgeEnv 组合一套完整的网关：内存缓存后端、安装/激活后的生命周期、
// 策略执行器与 Fiber 应用。
type edgeEnv struct {
	app      *fiber.App
	accessor cache.Accessor
	manager  *lifecycle.Manager
	writer   *cache.BackgroundWriter
	origin   *originStub
}

func newEdgeEnv(t *testing.T, origin *originStub, accessor cache.Accessor, cacheVersion string) *edgeEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	httpClient := origin.server.Client()
	originClient, err := strategy.NewOriginClient(httpClient, origin.server.URL)
	if err != nil {
		t.Fatalf("origin client error: %v", err)
	}

	manager := lifecycle.NewManager(accessor, originClient.Fetcher(), logger, cacheVersion)
	ctx := context.Background()
	if err := manager.Install(ctx, config.DefaultPrecacheManifest()); err != nil {
		t.Fatalf("install error: %v", err)
	}
	if err := manager.Activate(ctx); err != nil {
		t.Fatalf("activate error: %v", err)
	}

	writer := cache.NewBackgroundWriter(logger, 64, 0)
	t.Cleanup(writer.Close)

	executor := strategy.NewExecutor(originClient, manager.Claim(), writer, logger)
	forwarder, err := strategy.NewForwarder(httpClient, origin.server.URL, logger)
	if err != nil {
		t.Fatalf("forwarder error: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Classifier: classify.New([]string{"/media/"}, []string{"/static/"}, []string{"/api/", "/recipes"}),
		Resolver:   executor,
		Pass:       forwarder,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		Accessor:     accessor,
		CacheVersion: cacheVersion,
	})

	return &edgeEnv{
		app:      app,
		accessor: accessor,
		manager:  manager,
		writer:   writer,
		origin:   origin,
	}
}

// goOffline 关掉源站，此后所有网络取数都会失败。
func (e *edgeEnv) goOffline() {
	e.origin.server.CloseClientConnections()
	e.origin.server.Close()
}

func (e *edgeEnv) get(t *testing.T, path, accept string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", "http://edge.local"+path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	return string(body)
}

const browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
