package di

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag       string
		qualifier string
		nullable  bool
	}{
		{"", "", false},
		{"primary", "primary", false},
		{"?", "", true},
		{"optional", "", true},
		{"primary,?", "primary", true},
		{"primary, optional", "primary", true},
		{",?", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			q, n := parseTag(tt.tag)
			assert.Equal(t, tt.qualifier, q)
			assert.Equal(t, tt.nullable, n)
		})
	}
}

type auditBase struct {
	Clock *Dagny `di:"clock"`
	calls []string
}

func (a *auditBase) InjectAudit(d *Dagny) { a.calls = append(a.calls, "base:"+d.Name) }

type auditedService struct {
	auditBase
	Name   string
	Owner  *Dagny  `di:""`
	Helper Greeter `di:"?"`
	Skip   *Dagny  `di:"-"`
	Opt    Optional[*Bob]
	Plain  *Dagny
}

func (s *auditedService) InjectOwner(owner *Dagny) error {
	s.calls = append(s.calls, "owner:"+owner.Name)
	return nil
}

func (s *auditedService) InjectAlso(opt Optional[Greeter]) {
	s.calls = append(s.calls, "also")
}

func TestReflectMemberOrder(t *testing.T) {
	r := newReflector(nil)
	info, err := r.Reflect(reflect.TypeOf(&auditedService{}))
	require.NoError(t, err)
	assert.Nil(t, info.Constructor)

	var names []string
	for _, m := range info.Members {
		names = append(names, m.Kind.String()+":"+m.Member)
	}
	assert.Equal(t, []string{
		"field:Clock",
		"field:Owner",
		"field:Helper",
		"method:InjectAudit",
		"method:InjectAlso",
		"method:InjectOwner",
	}, names)

	clock := info.Members[0].Dependencies[0]
	assert.Equal(t, NamedKeyOf[*Dagny]("clock"), clock.Key)
	assert.False(t, clock.Nullable)

	helper := info.Members[2].Dependencies[0]
	assert.Equal(t, KeyOf[Greeter](), helper.Key)
	assert.True(t, helper.Nullable)

	also := info.Members[4].Dependencies[0]
	assert.Equal(t, KeyOf[Greeter](), also.Key)
	assert.True(t, also.Nullable)
}

func TestReflectIsCached(t *testing.T) {
	r := newReflector(nil)
	a, err := r.Reflect(reflect.TypeOf(&Bob{}))
	require.NoError(t, err)
	b, err := r.Reflect(reflect.TypeOf(&Bob{}))
	require.NoError(t, err)
	assert.Same(t, a, b)
}

type hiddenField struct {
	secret *Dagny `di:""`
}

type hiddenEmbeddedPointer struct {
	*auditBase
}

type badInjectMethod struct {
	Name string
}

func (b *badInjectMethod) InjectName(d *Dagny) string { return d.Name }

type variadicInjectMethod struct {
	Name string
}

func (v *variadicInjectMethod) InjectAll(ds ...*Dagny) {}

func TestInjectLikeMethodsWithOtherShapesAreIgnored(t *testing.T) {
	r := newReflector(nil)

	for _, typ := range []reflect.Type{
		reflect.TypeOf(&badInjectMethod{}),
		reflect.TypeOf(&variadicInjectMethod{}),
		reflect.TypeOf(&hostHandle{}),
	} {
		info, err := r.Reflect(typ)
		require.NoError(t, err, typ.String())
		assert.Empty(t, info.Members, typ.String())
	}

	assert.True(t, isInjectMethod("Inject", reflect.TypeOf(func(*Dagny) {})))
	assert.True(t, isInjectMethod("InjectÉtat", reflect.TypeOf(func(*Dagny) error { return nil })))
	assert.False(t, isInjectMethod("Injector", reflect.TypeOf(func() {})))
	assert.False(t, isInjectMethod("Inject_", reflect.TypeOf(func() {})))
	assert.False(t, isInjectMethod("InjectName", reflect.TypeOf(func() string { return "" })))
}

// hostHandle 形如应用宿主：名字以 Inject 开头的访问器不是注入方法
type hostHandle struct {
	inj   *Injector
	ready bool
}

func (h *hostHandle) Injector() *Injector { return h.inj }
func (h *hostHandle) Injected() bool      { return h.ready }

func TestJustInTimeTypeWithInjectorAccessor(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {})

	h, err := Get[*hostHandle](inj)
	require.NoError(t, err)
	assert.Nil(t, h.Injector())
	assert.False(t, h.Injected())
}

type AuditBase struct {
	Clock *Dagny `di:"clock"`
	calls []string
}

func (a *AuditBase) InjectAudit(d *Dagny) { a.calls = append(a.calls, "audit:"+d.Name) }

type pointerAudited struct {
	*AuditBase
	Owner *Dagny `di:""`
}

type MethodOnlyBase struct{ seen string }

func (m *MethodOnlyBase) InjectSeen(d *Dagny) { m.seen = d.Name }

type pointerMethodOnly struct {
	*MethodOnlyBase
}

func TestEmbeddedPointerIsAllocatedAndInjected(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).ToInstance(&Dagny{Name: "owner"})
		BindNamed[*Dagny](b, "clock").ToInstance(&Dagny{Name: "clock"})
	})

	s, err := Get[*pointerAudited](inj)
	require.NoError(t, err)
	require.NotNil(t, s.AuditBase)
	assert.Equal(t, "clock", s.Clock.Name)
	assert.Equal(t, "owner", s.Owner.Name)
	assert.Equal(t, []string{"audit:owner"}, s.calls)

	m, err := Get[*pointerMethodOnly](inj)
	require.NoError(t, err)
	require.NotNil(t, m.MethodOnlyBase)
	assert.Equal(t, "owner", m.seen)

	existing := &AuditBase{}
	withBase := &pointerAudited{AuditBase: existing}
	require.NoError(t, inj.InjectMembers(withBase))
	assert.Same(t, existing, withBase.AuditBase)
	assert.Equal(t, "clock", existing.Clock.Name)
}

func TestReflectErrors(t *testing.T) {
	r := newReflector(nil)

	_, err := r.Reflect(reflect.TypeOf(&hiddenField{}))
	assert.ErrorContains(t, err, "not exported")

	_, err = r.Reflect(reflect.TypeOf(&hiddenEmbeddedPointer{}))
	assert.ErrorContains(t, err, "cannot be allocated")

	_, err = r.Reflect(TypeOf[Greeter]())
	assert.ErrorContains(t, err, "no implementation was bound")

	_, err = r.Reflect(reflect.TypeOf(0))
	assert.ErrorContains(t, err, "not instantiable")
}

func TestReflectRegisteredConstructor(t *testing.T) {
	fn := reflect.ValueOf(NewBob)
	r := newReflector(map[reflect.Type]reflect.Value{reflect.TypeOf(&Bob{}): fn})

	info, err := r.Reflect(reflect.TypeOf(&Bob{}))
	require.NoError(t, err)
	require.NotNil(t, info.Constructor)
	assert.Equal(t, PointConstructor, info.Constructor.Kind)
	require.Len(t, info.Constructor.Dependencies, 1)
	assert.Equal(t, KeyOf[*Dagny](), info.Constructor.Dependencies[0].Key)
	assert.True(t, r.hasConstructor(reflect.TypeOf(&Bob{})))
}

func TestFunctionPointRejectsVariadic(t *testing.T) {
	_, err := functionPoint(reflect.ValueOf(func(ds ...*Dagny) *Bob { return nil }), PointConstructor)
	assert.ErrorContains(t, err, "variadic")

	_, err = functionPoint(reflect.Value{}, PointFunction)
	assert.Error(t, err)
}

func TestConstructorOutput(t *testing.T) {
	out, err := constructorOutput(reflect.TypeOf(func() (*Bob, error) { return nil, nil }))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(&Bob{}), out)

	_, err = constructorOutput(reflect.TypeOf(func() error { return nil }))
	assert.ErrorContains(t, err, "only an error")

	_, err = constructorOutput(reflect.TypeOf(func() {}))
	assert.ErrorContains(t, err, "must return")
}

func TestMethodAndFieldInjection(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).ToInstance(&Dagny{Name: "owner"})
		BindNamed[*Dagny](b, "clock").ToInstance(&Dagny{Name: "clock"})
	})

	s, err := Get[*auditedService](inj)
	require.NoError(t, err)

	assert.Equal(t, "clock", s.Clock.Name)
	assert.Equal(t, "owner", s.Owner.Name)
	assert.Nil(t, s.Helper)
	assert.Nil(t, s.Skip)
	assert.Nil(t, s.Plain)
	assert.False(t, s.Opt.Present())
	assert.Equal(t, []string{"base:owner", "also", "owner:owner"}, s.calls)
}
