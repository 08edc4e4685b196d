package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/gocrud/inject/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter interface {
	Greet(name string) string
}

type politeGreeter struct{}

func (*politeGreeter) Greet(name string) string { return "hello " + name }

type greeterProxy struct{ d *di.Dispatcher }

func (p greeterProxy) Greet(name string) string { return p.d.Call("Greet", name)[0].(string) }

// helloController 以字段注入拿到被拦截的 Greeter
type helloController struct {
	Greeter Greeter `di:""`
}

func (c *helloController) MountRoutes(r gin.IRouter) {
	r.GET("/hello/:name", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Greeter.Greet(ctx.Param("name")))
	})
}

type statusController struct {
	logger logging.Logger
}

func newStatusController(logger logging.Logger) *statusController {
	return &statusController{logger: logger}
}

func (c *statusController) MountRoutes(r gin.IRouter) {
	r.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"logger": c.logger != nil})
	})
}

type healthController struct{}

func (healthController) MountRoutes(r gin.IRouter) {
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
}

type serverHeader struct {
	Logger logging.Logger `di:""`
}

func (m *serverHeader) Handle(ctx *gin.Context) {
	ctx.Header("X-Server", "inject")
	ctx.Next()
}

type notController struct{}

func greeterModule() di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		di.Bind[Greeter](b).To(di.KeyOf[*politeGreeter]())
		di.Proxy[Greeter](b, func(d *di.Dispatcher) Greeter { return greeterProxy{d: d} })
		b.BindInterceptor(di.AnyType(), di.MethodNamed("Greet"), di.InterceptorFunc(func(inv *di.Invocation) []any {
			out := inv.Proceed()
			out[0] = strings.ToUpper(out[0].(string))
			return out
		}))
		di.BindNamed[web.Controller](b, "health").ToInstance(healthController{})
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestControllersAreResolvedFromInjector(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		core.WithModules(greeterModule()),
		web.New(
			web.WithPort(0),
			web.WithMiddleware(reflect.TypeOf(&serverHeader{})),
			web.WithControllers(&helloController{}, newStatusController),
		),
		web.New(web.WithControllers(di.NamedKeyOf[web.Controller]("health"))),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	require.Len(t, rt.HostedServices(), 1)
	host := di.MustGet[*web.Host](inj)
	h, err := host.Handler()
	require.NoError(t, err)

	rec := get(t, h, "/hello/bob")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HELLO BOB", rec.Body.String())
	assert.Equal(t, "inject", rec.Header().Get("X-Server"))

	rec = get(t, h, "/status")
	assert.JSONEq(t, `{"logger":true}`, rec.Body.String())

	rec = get(t, h, "/health")
	assert.Equal(t, "ok", rec.Body.String())

	again, err := host.Handler()
	require.NoError(t, err)
	assert.Same(t, h, again)
}

func TestControllerMustImplementInterface(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		web.New(web.WithControllers(reflect.TypeOf(&notController{}))),
	))
	inj, err := rt.Compile()
	require.NoError(t, err)

	_, err = di.MustGet[*web.Host](inj).Handler()
	assert.ErrorContains(t, err, "does not implement web.Controller")
}

func TestInvalidComponentsFailCompile(t *testing.T) {
	rt := core.NewRuntime()
	require.NoError(t, rt.Apply(
		core.WithLogger(logging.NewNopLogger()),
		web.New(web.WithPort(70000), web.WithControllers(42, di.Key{})),
	))
	_, err := rt.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 70000")
	assert.Contains(t, err.Error(), "expected a constructor")
	assert.Contains(t, err.Error(), "zero key")
}

func TestHostServesUntilStopped(t *testing.T) {
	app, err := inject.Build(
		core.WithLogger(logging.NewNopLogger()),
		core.WithModules(greeterModule()),
		web.New(web.WithPort(0), web.WithControllers(&helloController{})),
	)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	host := di.MustGet[*web.Host](app.Injector())
	require.Eventually(t, func() bool { return host.Address() != "" }, 2*time.Second, 10*time.Millisecond)

	addr := host.Address()
	if strings.HasPrefix(addr, "[::]") {
		addr = "127.0.0.1" + strings.TrimPrefix(addr, "[::]")
	}
	resp, err := http.Get("http://" + addr + "/hello/ada")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "HELLO ADA", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
	assert.NoError(t, app.Err())
}
