package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/logging"
	"github.com/recipe-edge/recipe-edge/internal/observe"
	"github.com/recipe-edge/recipe-edge/internal/routeclass"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Classifier RequestClassifier
	Resolver   FetchResolver
	Pass       Passthrough
	Observer   *observe.Observer
	ListenPort int
}

const contextKeyRequestID = "_recipeedge_request_id"

// NewApp builds a Fiber application that intercepts every request, classifies
// it, and either resolves it through a cache strategy or passes it through to
// the origin untouched.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("fetch resolver is required")
	}
	if opts.Pass == nil {
		return nil, errors.New("passthrough handler is required")
	}
	if opts.Observer == nil {
		opts.Observer = observe.Disabled()
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	app.All("/*", func(c fiber.Ctx) error {
		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		accept := string(c.Request().Header.Peek(fiber.HeaderAccept))
		class := opts.Classifier.Classify(c.Method(), path, accept)
		c.Set("X-Recipe-Edge-Class", string(class))

		if class == routeclass.ClassPassthrough {
			return opts.Pass.Forward(c)
		}
		return handleIntercepted(c, opts, class, path, accept)
	})

	return app, nil
}

// handleIntercepted 执行策略并把最终快照写回下游，整个异步链在本次
// 请求返回前完成，宿主不会提前撕毁响应。
func handleIntercepted(c fiber.Ctx, opts AppOptions, class routeclass.Class, path, accept string) error {
	started := time.Now()

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req := FetchRequest{
		Method: c.Method(),
		Path:   path,
		Query:  string(c.Request().URI().QueryString()),
		Accept: accept,
		Header: requestHeader(c),
	}

	result, err := opts.Resolver.Resolve(ctx, class, req)
	if err != nil {
		fields := logging.FetchFields(string(class), "", "", false)
		fields["action"] = "fetch_failed"
		fields["path"] = path
		fields["request_id"] = RequestID(c)
		opts.Logger.WithError(err).WithFields(fields).Warn("请求无法解出响应")
		opts.Observer.RecordFetch(ctx, string(class), "", "error", time.Since(started))

		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "origin_unreachable",
			"class": string(class),
		})
	}

	fields := logging.FetchFields(string(result.Class), string(result.Strategy), result.Source, result.Source == SourceCache)
	fields["action"] = "fetch_resolved"
	fields["path"] = path
	fields["status"] = result.Snapshot.StatusCode
	fields["request_id"] = RequestID(c)
	opts.Logger.WithFields(fields).Info("请求已解出响应")
	opts.Observer.RecordFetch(ctx, string(result.Class), string(result.Strategy), result.Source, time.Since(started))

	return writeSnapshot(c, result)
}

func writeSnapshot(c fiber.Ctx, result *FetchResult) error {
	snap := result.Snapshot
	for key, values := range snap.Header {
		if IsHopByHopHeader(key) || key == "Content-Length" {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	c.Set("X-Recipe-Edge-Cache", result.Source)
	if reqID := RequestID(c); reqID != "" {
		c.Set("X-Request-ID", reqID)
	}

	c.Response().Header.SetContentLength(len(snap.Body))
	return c.Status(snap.StatusCode).Send(snap.Body)
}

// requestHeader 把 fasthttp 头转换为 net/http 形式，供上游取数复用。
func requestHeader(c fiber.Ctx) http.Header {
	header := make(http.Header)
	for key, values := range c.GetReqHeaders() {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	return header
}

// requestContextMiddleware 负责生成请求 ID 并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return len(path) >= 3 && path[:3] == "/-/"
}
