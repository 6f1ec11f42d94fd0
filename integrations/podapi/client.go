package podapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 30 * time.Second

// Client polls the remote pod API. Every body it hands back is valid JSON.
type Client struct {
	cfg   config.APIConfig
	http  *fasthttp.Client
	paths map[domainOffline.Domain]string
	now   func() time.Time
}

type Option func(*Client)

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(cfg config.APIConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                     cfg.UserAgent,
			ReadTimeout:              cfg.Timeout,
			WriteTimeout:             cfg.Timeout,
			MaxIdleConnDuration:      90 * time.Second,
			NoDefaultUserAgentHeader: cfg.UserAgent != "",
		},
		paths: map[domainOffline.Domain]string{
			domainOffline.DomainDevice: cfg.DevicePath,
			domainOffline.DomainUser:   cfg.UserPath,
			domainOffline.DomainBase:   cfg.BasePath,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the fetch function for one data domain.
func (c *Client) Fetch(domain domainOffline.Domain) domainOffline.FetchFunc {
	return func(ctx context.Context) (domainOffline.Payload, error) {
		path, ok := c.paths[domain]
		if !ok || path == "" {
			return domainOffline.Payload{}, pkgError.ValidationError(fmt.Sprintf("no API path configured for %s", domain))
		}
		body, err := c.get(ctx, "fetch "+string(domain), path)
		if err != nil {
			return domainOffline.Payload{}, err
		}
		return domainOffline.Payload{Domain: domain, Data: body, FetchedAt: c.now().UTC()}, nil
	}
}

// Fetchers maps every configured domain to its fetch function.
func (c *Client) Fetchers() map[domainOffline.Domain]domainOffline.FetchFunc {
	out := make(map[domainOffline.Domain]domainOffline.FetchFunc, len(c.paths))
	for d, p := range c.paths {
		if p != "" {
			out[d] = c.Fetch(d)
		}
	}
	return out
}

// Ping is the connectivity probe used during recovery.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", c.cfg.HealthPath)
	return err
}

func (c *Client) get(ctx context.Context, op, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.SetUserAgent(c.cfg.UserAgent)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, fasthttp.ErrTimeout) {
			err = fmt.Errorf("request timed out: %w", err)
		}
		return nil, &pkgError.TransientFetchError{Op: op, Err: err}
	}
	logrus.Debugf("[API] %s %s -> %d in %s", op, path, resp.StatusCode(), time.Since(start).Round(time.Millisecond))

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, &pkgError.AuthError{Status: status, Err: errors.New(snippet(body))}
	case status == http.StatusNotFound:
		return nil, pkgError.NotFoundError(fmt.Sprintf("%s: %s not found", op, path))
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return nil, &pkgError.TransientFetchError{Op: op, Status: status, Err: errors.New(snippet(body))}
	case status >= http.StatusBadRequest:
		return nil, fmt.Errorf("%s: unexpected status %d: %s", op, status, snippet(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: failed to parse response: invalid JSON", op)
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
