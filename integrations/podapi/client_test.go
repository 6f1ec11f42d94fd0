package podapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) (*Client, *fasthttputil.InmemoryListener) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := New(config.APIConfig{
		BaseURL:    "http://pod.test/v1",
		Token:      "secret",
		Timeout:    2 * time.Second,
		UserAgent:  "az-eight-test",
		DevicePath: "/devices/current",
		UserPath:   "/users/me",
		BasePath:   "/base/current",
		HealthPath: "/users/me",
	}, WithDial(func(addr string) (net.Conn, error) { return ln.Dial() }))
	return c, ln
}

func TestFetch_ReturnsPayload(t *testing.T) {
	var gotPath, gotAuth, gotUA string
	c, _ := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotAuth = string(ctx.Request.Header.Peek("Authorization"))
		gotUA = string(ctx.UserAgent())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"heatingLevel":-20}`)
	})

	p, err := c.Fetch(domainOffline.DomainDevice)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainOffline.DomainDevice, p.Domain)
	assert.JSONEq(t, `{"heatingLevel":-20}`, string(p.Data))
	assert.False(t, p.FetchedAt.IsZero())
	assert.Equal(t, "/v1/devices/current", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "az-eight-test", gotUA)
}

func TestFetch_ClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status    int
		auth      bool
		transient bool
	}{
		{fasthttp.StatusUnauthorized, true, false},
		{fasthttp.StatusForbidden, true, false},
		{fasthttp.StatusTooManyRequests, false, true},
		{fasthttp.StatusBadGateway, false, true},
		{fasthttp.StatusServiceUnavailable, false, true},
		{fasthttp.StatusBadRequest, false, false},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(tc.status)
			ctx.SetBodyString(`{"error":"nope"}`)
		})
		_, err := c.Fetch(domainOffline.DomainUser)(context.Background())
		require.Error(t, err, tc.status)
		assert.Equal(t, tc.auth, pkgError.IsAuth(err), tc.status)
		assert.Equal(t, tc.transient, pkgError.IsTransient(err), tc.status)
	}
}

func TestFetch_NotFoundAndInvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/v1/base/current" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetBodyString(`{"broken":`)
	})

	_, err := c.Fetch(domainOffline.DomainBase)(context.Background())
	var notFound pkgError.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = c.Fetch(domainOffline.DomainDevice)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
	assert.False(t, pkgError.IsTransient(err))
}

func TestPing_NetworkFailureIsTransient(t *testing.T) {
	c, _ := newTestClient(t, func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString(`{}`) })
	require.NoError(t, c.Ping(context.Background()))

	down := New(config.APIConfig{BaseURL: "http://pod.test", HealthPath: "/users/me"},
		WithDial(func(addr string) (net.Conn, error) { return nil, errors.New("connection refused") }))
	err := down.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, pkgError.IsTransient(err))
	key, _ := pkgError.FromError(err)
	assert.Equal(t, pkgError.MsgNetworkError, key)
}

func TestFetch_CancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString(`{}`) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(domainOffline.DomainDevice)(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchers_SkipsUnconfiguredDomains(t *testing.T) {
	c := New(config.APIConfig{BaseURL: "http://pod.test", DevicePath: "/d", UserPath: "/u"})
	f := c.Fetchers()
	assert.Len(t, f, 2)
	assert.NotContains(t, f, domainOffline.DomainBase)
}
