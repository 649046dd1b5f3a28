package strategy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/recipe-edge/recipe-edge/internal/server"
)

// Forwarder 处理 passthrough 分类：请求原样转发给源站，响应流式回写，
// 全程不读写缓存。离线时的写请求排队重放是调用方应用的职责。
type Forwarder struct {
	client *http.Client
	base   *url.URL
	logger *logrus.Logger
}

// NewForwarder 构造直通转发器。
func NewForwarder(client *http.Client, originURL string, logger *logrus.Logger) (*Forwarder, error) {
	base, err := url.Parse(originURL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}
	return &Forwarder{client: client, base: base, logger: logger}, nil
}

var _ server.Passthrough = (*Forwarder)(nil)

// Forward 实现 server.Passthrough。
func (f *Forwarder) Forward(c fiber.Ctx) error {
	target := *f.base
	target.Path = string(c.Request().URI().Path())
	target.RawQuery = string(c.Request().URI().QueryString())

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if raw := c.Body(); len(raw) > 0 {
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method(), target.String(), body)
	if err != nil {
		return f.respondUnreachable(c, err)
	}
	for key, values := range c.GetReqHeaders() {
		if server.IsHopByHopHeader(key) || key == fiber.HeaderHost {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.respondUnreachable(c, err)
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if server.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	c.Status(resp.StatusCode)

	if _, err := io.Copy(c.Response().BodyWriter(), resp.Body); err != nil {
		f.logger.WithError(err).WithField("action", "passthrough_stream_failed").Warn("直通响应流中断")
	}
	return nil
}

func (f *Forwarder) respondUnreachable(c fiber.Ctx, err error) error {
	f.logger.WithError(err).WithFields(logrus.Fields{
		"action": "passthrough_failed",
		"path":   string(c.Request().URI().Path()),
		"method": c.Method(),
	}).Warn("直通请求无法送达源站")

	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": "origin_unreachable",
		"class": "passthrough",
	})
}
