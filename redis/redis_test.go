package redis

import (
	"context"
	"testing"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheService struct {
	Default *redis.Client `di:""`
	Cache   *redis.Client `di:"cache"`
	Session *redis.Client `di:"session,?"`
}

func compile(t *testing.T, opts ...core.Option) (*core.Runtime, *di.Injector) {
	t.Helper()
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(append([]core.Option{core.WithLogger(logging.NewNopLogger())}, opts...)...))
	inj, err := rt.Compile()
	require.NoError(t, err)
	return rt, inj
}

func TestNamedClientsAreInjected(t *testing.T) {
	rt, inj := compile(t, New(
		WithClient(DefaultName, func(o *ClientOptions) { o.Addr = "127.0.0.1:6390" }),
		WithClient("cache", func(o *ClientOptions) {
			o.Addr = "127.0.0.1:6391"
			o.DB = 2
		}),
	))

	svc, err := di.Get[*cacheService](inj)
	require.NoError(t, err)
	require.NotNil(t, svc.Default)
	require.NotNil(t, svc.Cache)
	assert.Nil(t, svc.Session)
	assert.Equal(t, "127.0.0.1:6390", svc.Default.Options().Addr)
	assert.Equal(t, 2, svc.Cache.Options().DB)

	again, err := di.GetNamed[*redis.Client](inj, "cache")
	require.NoError(t, err)
	assert.Same(t, svc.Cache, again)

	def, err := di.GetNamed[*redis.Client](inj, DefaultName)
	require.NoError(t, err)
	assert.Same(t, svc.Default, def)

	factory := di.MustGet[*ClientFactory](inj)
	assert.Equal(t, []string{DefaultName, "cache"}, factory.Names())

	require.NoError(t, rt.Lifecycle.Stop(context.Background(), inj))
}

func TestNoClientsNoBindings(t *testing.T) {
	_, inj := compile(t, New())
	_, err := di.Get[*ClientFactory](inj)
	assert.ErrorIs(t, err, di.ErrNoBinding)
}

func TestBuilderErrors(t *testing.T) {
	rt := core.NewRuntime()
	err := rt.Apply(New(
		WithClient("dup"),
		WithClient("dup"),
		WithClient("bad", func(o *ClientOptions) { o.Addr = "" }),
		WithClient("neg", func(o *ClientOptions) { o.DB = -1 }),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
	assert.Contains(t, err.Error(), "address is required")
	assert.Contains(t, err.Error(), "non-negative")
}

func TestFactory(t *testing.T) {
	f := NewClientFactory(nil)
	require.NoError(t, f.Register(*NewDefaultOptions("a")))
	assert.ErrorContains(t, f.Register(*NewDefaultOptions("a")), "already registered")

	c1, err := f.Get("a")
	require.NoError(t, err)
	c2, err := f.Get("a")
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	_, err = f.Get("missing")
	assert.ErrorContains(t, err, "not found")

	assert.NoError(t, f.Close())
	c3, err := f.Get("a")
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
	assert.NoError(t, f.Close())
}
