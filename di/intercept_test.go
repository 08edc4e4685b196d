package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// greeterProxy 显式代理：每个方法都转给 Dispatcher
type greeterProxy struct {
	d *Dispatcher
}

func (p greeterProxy) Greet(name string) string {
	return p.d.Call("Greet", name)[0].(string)
}

func registerGreeterProxy(b *Binder) {
	Proxy[Greeter](b, func(d *Dispatcher) Greeter { return greeterProxy{d: d} })
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func tagging(r *recorder, tag string) MethodInterceptor {
	return InterceptorFunc(func(inv *Invocation) []any {
		r.add(tag + ":before")
		out := inv.Proceed()
		r.add(tag + ":after")
		out[0] = fmt.Sprintf("%s(%s)", tag, out[0])
		return out
	})
}

func TestInterceptorsRunInRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		registerGreeterProxy(b)
		b.BindInterceptor(SubtypeOf[Greeter](), AnyMethod(), tagging(rec, "first"))
		b.BindInterceptor(AnyType(), MethodNamed("Greet"), tagging(rec, "second"))
	})

	g, err := Get[Greeter](inj)
	require.NoError(t, err)
	assert.IsType(t, greeterProxy{}, g)

	assert.Equal(t, "first(second(hello bob))", g.Greet("bob"))
	assert.Equal(t, []string{"first:before", "second:before", "second:after", "first:after"}, rec.calls)
}

func TestInterceptorShortCircuit(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		registerGreeterProxy(b)
		b.BindInterceptor(AnyType(), AnyMethod(), InterceptorFunc(func(inv *Invocation) []any {
			if inv.Args[0] == "eve" {
				return []any{"access denied"}
			}
			return inv.Proceed()
		}))
	})

	g := MustGet[Greeter](inj)
	assert.Equal(t, "access denied", g.Greet("eve"))
	assert.Equal(t, "hello adam", g.Greet("adam"))
}

func TestInterceptorCanRewriteArguments(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		registerGreeterProxy(b)
		b.BindInterceptor(AnyType(), AnyMethod(), InterceptorFunc(func(inv *Invocation) []any {
			inv.Args[0] = strings.ToUpper(inv.Args[0].(string))
			return inv.Proceed()
		}))
	})

	assert.Equal(t, "hello BOB", MustGet[Greeter](inj).Greet("bob"))
}

func TestInvocationMetadata(t *testing.T) {
	var seen *Invocation
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		registerGreeterProxy(b)
		b.BindInterceptor(AnyType(), AnyMethod(), InterceptorFunc(func(inv *Invocation) []any {
			seen = inv
			return inv.Proceed()
		}))
	})

	MustGet[Greeter](inj).Greet("x")
	require.NotNil(t, seen)
	assert.Equal(t, "Greet", seen.Method.Name)
	assert.IsType(t, &englishGreeter{}, seen.Receiver)
	assert.Equal(t, []any{"x"}, seen.Args)
}

type flaky interface {
	Fetch(key string) (string, error)
}

type flakyStore struct {
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Fetch(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return "", errors.New("unavailable")
	}
	return "value of " + key, nil
}

type flakyProxy struct{ d *Dispatcher }

func (p flakyProxy) Fetch(key string) (string, error) {
	out := p.d.Call("Fetch", key)
	err, _ := out[1].(error)
	return out[0].(string), err
}

func TestInterceptorRetriesByProceedingTwice(t *testing.T) {
	store := &flakyStore{failures: 1}
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[flaky](b).ToConstructor(func() flaky { return store })
		Proxy[flaky](b, func(d *Dispatcher) flaky { return flakyProxy{d: d} })
		b.BindInterceptor(AnyType(), MethodPrefix("Fetch"), InterceptorFunc(func(inv *Invocation) []any {
			out := inv.Proceed()
			if out[1] != nil {
				out = inv.Proceed()
			}
			return out
		}))
	})

	v, err := MustGet[flaky](inj).Fetch("k")
	require.NoError(t, err)
	assert.Equal(t, "value of k", v)
}

type formatter interface {
	Format(pattern string, args ...any) string
	Plain() string
}

type sprintf struct{ Name string }

func (s *sprintf) Format(pattern string, args ...any) string { return fmt.Sprintf(pattern, args...) }
func (s *sprintf) Plain() string                            { return "plain" }

type formatterProxy struct{ d *Dispatcher }

func (p formatterProxy) Format(pattern string, args ...any) string {
	return p.d.Call("Format", pattern, args)[0].(string)
}

func (p formatterProxy) Plain() string {
	return p.d.Call("Plain")[0].(string)
}

func TestVariadicAndUnmatchedMethods(t *testing.T) {
	var intercepted []string
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[formatter](b).To(KeyOf[*sprintf]()).In(Singleton)
		Proxy[formatter](b, func(d *Dispatcher) formatter { return formatterProxy{d: d} })
		b.BindInterceptor(AnyType(), MethodNamed("Format"), InterceptorFunc(func(inv *Invocation) []any {
			intercepted = append(intercepted, inv.Method.Name)
			return inv.Proceed()
		}))
	})

	f := MustGet[formatter](inj)
	assert.Equal(t, "a=1 b=two", f.Format("a=%d b=%s", 1, "two"))
	assert.Equal(t, "plain", f.Plain())
	assert.Equal(t, []string{"Format"}, intercepted)

	assert.Same(t, f.(formatterProxy).d, MustGet[formatter](inj).(formatterProxy).d)
}

func TestConcreteKeysAreNeverIntercepted(t *testing.T) {
	rec := &recorder{}
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		registerGreeterProxy(b)
		b.BindInterceptor(AnyType(), AnyMethod(), tagging(rec, "t"))
	})

	g := MustGet[*englishGreeter](inj)
	assert.Equal(t, "hello raw", g.Greet("raw"))
	assert.Empty(t, rec.calls)
}

func TestNoInterceptionWithoutMatch(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]())
		b.BindInterceptor(InPackage("example.com/elsewhere"), AnyMethod(), tagging(&recorder{}, "t"))
	})

	assert.IsType(t, &englishGreeter{}, MustGet[Greeter](inj))
}

func TestMissingProxyIsConfigurationError(t *testing.T) {
	b := NewBinder()
	Bind[Greeter](b).To(KeyOf[*englishGreeter]())
	b.BindInterceptor(AnyType(), AnyMethod(), tagging(&recorder{}, "t"))

	ce := creationError(t, b, StageDevelopment)
	require.Len(t, ce.Messages, 1)
	assert.Contains(t, ce.Messages[0].Error(), "no proxy is registered")
}

type loudGreeter struct{ Volume int }

func (g *loudGreeter) Greet(name string) string { return "HELLO " + name }
func (g *loudGreeter) Shout() string            { return "!!!" }

func TestMatchedMethodOutsideInterfaceIsConfigurationError(t *testing.T) {
	b := NewBinder()
	Bind[Greeter](b).To(KeyOf[*loudGreeter]())
	registerGreeterProxy(b)
	b.BindInterceptor(AnyType(), AnyMethod(), tagging(&recorder{}, "t"))

	ce := creationError(t, b, StageDevelopment)
	require.Len(t, ce.Messages, 1)
	assert.Contains(t, ce.Messages[0].Error(), "Shout")
	assert.Contains(t, ce.Messages[0].Error(), "cannot be intercepted")

	b = NewBinder()
	Bind[Greeter](b).To(KeyOf[*loudGreeter]())
	registerGreeterProxy(b)
	b.BindInterceptor(AnyType(), Not(MethodNamed("Shout")), tagging(&recorder{}, "t"))
	inj, err := Compile(b, StageDevelopment)
	require.NoError(t, err)
	assert.Equal(t, "t(HELLO x)", MustGet[Greeter](inj).Greet("x"))
}

func TestConstructorBindingWithDynamicTypeIsCheckedLazily(t *testing.T) {
	b := NewBinder()
	Bind[Greeter](b).ToConstructor(func() Greeter { return &loudGreeter{} })
	registerGreeterProxy(b)
	b.BindInterceptor(AnyType(), AnyMethod(), tagging(&recorder{}, "t"))

	inj, err := Compile(b, StageDevelopment)
	require.NoError(t, err)

	_, err = Get[Greeter](inj)
	var pe *ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "Shout")
}

func TestMatchers(t *testing.T) {
	greeterType := reflect.TypeOf(&englishGreeter{})
	dagnyType := reflect.TypeOf(&Dagny{})

	assert.True(t, SubtypeOf[Greeter]().Matches(greeterType))
	assert.False(t, SubtypeOf[Greeter]().Matches(dagnyType))
	assert.True(t, InPackage(dagnyType.Elem().PkgPath()).Matches(dagnyType))
	assert.True(t, TypeIs(dagnyType).Matches(dagnyType))

	both := And(SubtypeOf[Greeter](), InPackage(greeterType.Elem().PkgPath()))
	assert.True(t, both.Matches(greeterType))
	assert.False(t, both.Matches(dagnyType))

	either := Or(SubtypeOf[Greeter](), TypeIs(dagnyType))
	assert.True(t, either.Matches(dagnyType))
	assert.False(t, Not(either).Matches(dagnyType))

	m, _ := greeterType.MethodByName("Greet")
	assert.True(t, MethodPrefix("Gr").Matches(m))
	assert.True(t, MethodNamed("Other", "Greet").Matches(m))
	assert.False(t, MethodNamed("Other").Matches(m))
}

func TestProxyRegistrationErrors(t *testing.T) {
	b := NewBinder()
	registerGreeterProxy(b)
	registerGreeterProxy(b)
	Proxy[*Dagny](b, func(d *Dispatcher) *Dagny { return nil })
	b.RegisterProxy(reflect.TypeOf(0), func(d *Dispatcher) any { return nil })

	errs := b.Errors()
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Text, "already registered")
	assert.Contains(t, errs[1].Text, "not an interface")
	assert.Contains(t, errs[2].Text, "not an interface")
}

func TestDispatcherTarget(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).To(KeyOf[*englishGreeter]()).In(Singleton)
		registerGreeterProxy(b)
		b.BindInterceptor(AnyType(), AnyMethod(), tagging(&recorder{}, "t"))
	})

	p := MustGet[Greeter](inj).(greeterProxy)
	assert.IsType(t, &englishGreeter{}, p.d.Target())
}
