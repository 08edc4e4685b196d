package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
	"go.uber.org/multierr"
)

// Stage 编译阶段策略
type Stage int

const (
	// StageDevelopment 惰性：只有 AsEagerSingleton 的绑定在编译时创建
	StageDevelopment Stage = iota
	// StageProduction 编译时调用每个绑定的 Producer 一次，尽早暴露构造错误
	StageProduction
)

func (s Stage) String() string {
	switch s {
	case StageDevelopment:
		return "Development"
	case StageProduction:
		return "Production"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ParseStage 解析配置中的阶段名称
func ParseStage(s string) (Stage, error) {
	switch s {
	case "", "development", "Development", "dev":
		return StageDevelopment, nil
	case "production", "Production", "prod":
		return StageProduction, nil
	}
	return StageDevelopment, fmt.Errorf("di: unknown stage %q", s)
}

// Option 编译选项
type Option func(*options)

type options struct {
	logger    logging.Logger
	reflector Reflector
}

// WithLogger 设置注入器日志
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReflector 替换默认的类型元数据提供者
func WithReflector(r Reflector) Option {
	return func(o *options) {
		if r != nil {
			o.reflector = r
		}
	}
}

var injectorKey = KeyOf[*Injector]()

type state struct {
	binding  *Binding
	producer Producer
}

// Injector 编译后的注入器，可被多个 goroutine 并发使用
type Injector struct {
	stage        Stage
	logger       logging.Logger
	reflector    Reflector
	constructors map[reflect.Type]reflect.Value
	interceptors *interceptors

	states map[Key]*state
	order  []*state

	jitMu sync.RWMutex
	jit   map[Key]*state

	locks creationLocks
}

// New 依次安装模块并编译
func New(stage Stage, modules ...Module) (*Injector, error) {
	b := NewBinder()
	b.Install(modules...)
	return Compile(b, stage)
}

// Compile 把 Binder 编译为 Injector。所有配置错误一次性以 *CreationError 返回。
func Compile(b *Binder, stage Stage, opts ...Option) (*Injector, error) {
	start := time.Now()
	o := options{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reflector == nil {
		o.reflector = newReflector(b.constructors)
	}

	inj := &Injector{
		stage:        stage,
		logger:       o.logger.WithCategory("di"),
		reflector:    o.reflector,
		constructors: b.constructors,
		interceptors: newInterceptors(b.aspects, b.proxies),
		states:       make(map[Key]*state, len(b.bindings)),
		jit:          make(map[Key]*state),
	}

	errs := b.Errors()
	for _, cb := range b.constants {
		if cb.binding == nil {
			errs = append(errs, Message{Source: cb.source, Text: fmt.Sprintf("missing constant value for %q, call To(value)", cb.qualifier)})
		}
	}

	// 重复绑定：每一次重复注册都单独报告
	first := make(map[Key]*Binding, len(b.bindings))
	for _, bnd := range b.bindings {
		if bnd.key.IsZero() {
			continue
		}
		if prev, dup := first[bnd.key]; dup {
			errs = append(errs, Message{
				Source: bnd.source,
				Text:   fmt.Sprintf("%v was already configured at %s", bnd.key, prev.source),
			})
			continue
		}
		if bnd.key == injectorKey {
			errs = append(errs, Message{Source: bnd.source, Text: fmt.Sprintf("%v is bound by the injector itself", injectorKey)})
			continue
		}
		first[bnd.key] = bnd
		st := &state{binding: bnd}
		inj.states[bnd.key] = st
		inj.order = append(inj.order, st)
	}
	inj.states[injectorKey] = &state{
		binding:  &Binding{key: injectorKey, kind: KindInstance, instance: inj, targetSet: true},
		producer: instanceProducer{value: inj},
	}

	for _, st := range inj.order {
		producer, err := inj.compileBinding(st.binding)
		if err != nil {
			errs = append(errs, Message{Source: st.binding.source, Text: fmt.Sprintf("invalid binding for %v", st.binding.key), Cause: err})
			continue
		}
		st.producer = producer
	}
	errs = append(errs, inj.checkLinks()...)
	if len(errs) > 0 {
		return nil, &CreationError{Messages: errs}
	}

	errs = append(errs, inj.injectInstances(b.requests)...)
	if len(errs) > 0 {
		return nil, &CreationError{Messages: errs}
	}

	eager := 0
	for _, st := range inj.order {
		if stage != StageProduction && !st.binding.eager {
			continue
		}
		eager++
		rc := inj.newContext(st.binding.source)
		if _, err := inj.resolve(rc, st.binding.key, rootDependency(st.binding.key)); err != nil {
			errs = append(errs, Message{
				Source: st.binding.source,
				Text:   fmt.Sprintf("error eagerly initializing %v", st.binding.key),
				Cause:  err,
			})
		}
	}
	if len(errs) > 0 {
		inj.logger.Error("injector creation failed", logging.Int("errors", len(errs)))
		return nil, &CreationError{Messages: errs}
	}

	inj.logger.Info("injector created",
		logging.String("stage", stage.String()),
		logging.Int("bindings", len(inj.order)),
		logging.Int("eager", eager),
		logging.Duration("elapsed", time.Since(start)))
	return inj, nil
}

func (inj *Injector) compileBinding(b *Binding) (Producer, error) {
	key := b.key
	var raw Producer

	switch b.kind {
	case KindInstance:
		if b.scopeSet {
			return nil, errors.New("setting the scope is not permitted when binding to a single instance")
		}
		if isNil(b.instance) {
			return nil, errors.New("instance is nil")
		}
		if t := reflect.TypeOf(b.instance); !t.AssignableTo(key.typ) {
			return nil, fmt.Errorf("instance of %v is not assignable to %v", t, key.typ)
		}
		return instanceProducer{value: b.instance}, nil

	case KindLinked:
		if b.target.IsZero() {
			return nil, errors.New("link target has no type")
		}
		if b.target == key {
			return nil, fmt.Errorf("%v is linked to itself", key)
		}
		if !b.target.typ.AssignableTo(key.typ) {
			return nil, fmt.Errorf("link target %v is not assignable to %v", b.target.typ, key.typ)
		}
		if err := inj.checkTarget(b.target); err != nil {
			return nil, err
		}
		if b.target.typ.Kind() != reflect.Interface {
			if _, err := inj.interceptors.planFor(key.typ, b.target.typ); err != nil {
				return nil, err
			}
		}
		raw = &linkedProducer{inj: inj, key: key, target: b.target}

	case KindProvider:
		if b.target.IsZero() {
			return nil, errors.New("provider key has no type")
		}
		if !b.target.typ.Implements(providerType) {
			return nil, fmt.Errorf("%v does not implement di.Provider", b.target.typ)
		}
		if err := inj.checkTarget(b.target); err != nil {
			return nil, err
		}
		raw = &providerKeyProducer{inj: inj, providerKey: b.target}

	case KindProviderInstance:
		if isNil(b.provider) {
			return nil, errors.New("provider is nil")
		}
		raw = &providerInstanceProducer{inj: inj, provider: b.provider}

	case KindConstructor:
		point, err := functionPoint(b.ctor, PointConstructor)
		if err != nil {
			return nil, err
		}
		out, err := constructorOutput(b.ctor.Type())
		if err != nil {
			return nil, err
		}
		if !out.AssignableTo(key.typ) {
			return nil, fmt.Errorf("constructor result %v is not assignable to %v", out, key.typ)
		}
		point.Declaring = out
		if out.Kind() != reflect.Interface {
			if _, err := inj.interceptors.planFor(key.typ, out); err != nil {
				return nil, err
			}
		}
		raw = &constructorProducer{inj: inj, key: key, point: point}

	case KindConstructed:
		if key.typ.Kind() == reflect.Interface {
			return nil, fmt.Errorf("no implementation was bound for %v", key)
		}
		info, err := inj.reflector.Reflect(key.typ)
		if err != nil {
			return nil, err
		}
		raw = &constructedProducer{inj: inj, info: info}

	default:
		return nil, fmt.Errorf("unknown binding kind %v", b.kind)
	}

	return b.Scope().Scope(key, raw), nil
}

// checkTarget 目标必须有显式绑定或能即时创建
func (inj *Injector) checkTarget(target Key) error {
	if _, ok := inj.states[target]; ok {
		return nil
	}
	_, err := inj.stateFor(target)
	return err
}

// checkLinks 纯链接组成的环无法解析
func (inj *Injector) checkLinks() []Message {
	var msgs []Message
	reported := make(map[Key]bool)
	for _, st := range inj.order {
		start := st.binding
		if start.kind != KindLinked || st.producer == nil || reported[start.key] {
			continue
		}
		path := []Key{start.key}
		seen := map[Key]bool{start.key: true}
		cur := start.target
		for {
			next, ok := inj.states[cur]
			if !ok || next.binding.kind != KindLinked {
				break
			}
			path = append(path, cur)
			if seen[cur] {
				if cur == start.key {
					for _, k := range path {
						reported[k] = true
					}
					msgs = append(msgs, Message{
						Source: start.source,
						Text:   fmt.Sprintf("linked bindings form a cycle: %s", formatPath(path)),
					})
				}
				break
			}
			seen[cur] = true
			cur = next.binding.target
		}
	}
	return msgs
}

// injectInstances 实例绑定、Provider 实例以及 RequestInjection 的成员注入
func (inj *Injector) injectInstances(requests []injectionRequest) []Message {
	var msgs []Message
	inject := func(key Key, target any, source string) {
		if !isStructPointer(reflect.TypeOf(target)) {
			return
		}
		if err := inj.injectInto(key, target, source); err != nil {
			msgs = append(msgs, Message{Source: source, Text: fmt.Sprintf("error injecting members of %T", target), Cause: err})
		}
	}
	for _, st := range inj.order {
		switch st.binding.kind {
		case KindInstance:
			inject(st.binding.key, st.binding.instance, st.binding.source)
		case KindProviderInstance:
			inject(NewKey(reflect.TypeOf(st.binding.provider)), st.binding.provider, st.binding.source)
		}
	}
	for _, r := range requests {
		inject(NewKey(reflect.TypeOf(r.target)), r.target, r.source)
	}
	return msgs
}

func (inj *Injector) injectInto(key Key, target any, source string) error {
	info, err := inj.reflector.Reflect(reflect.TypeOf(target))
	if err != nil {
		return err
	}
	if len(info.Members) == 0 {
		return nil
	}
	rc := inj.newContext(source)
	rc.push(key, rootDependency(key), source)
	rc.setPartial(target)
	err = inj.injectMembers(rc, reflect.ValueOf(target), info.Members)
	rc.pop(err == nil)
	rc.settle(err == nil)
	return err
}

func (inj *Injector) newContext(source string) *ResolveContext {
	return &ResolveContext{inj: inj, rootSource: source}
}

// Stage 返回编译阶段
func (inj *Injector) Stage() Stage { return inj.stage }

// Resolve 解析 Key。顶层请求可空：Provider 返回 nil 时得到 nil。
func (inj *Injector) Resolve(key Key) (any, error) {
	rc := inj.newContext("")
	return inj.resolve(rc, key, rootDependency(key))
}

// ResolveAll 依次解析多个 Key，每个 Key 使用独立的解析上下文，错误合并返回
func (inj *Injector) ResolveAll(keys ...Key) ([]any, error) {
	values := make([]any, len(keys))
	var err error
	for i, k := range keys {
		v, e := inj.Resolve(k)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		values[i] = v
	}
	return values, err
}

// InjectMembers 对已有的结构体指针执行字段与方法注入
func (inj *Injector) InjectMembers(target any) error {
	t := reflect.TypeOf(target)
	if !isStructPointer(t) || reflect.ValueOf(target).IsNil() {
		return fmt.Errorf("di: InjectMembers requires a non-nil pointer to struct, got %T", target)
	}
	return inj.injectInto(NewKey(t), target, "")
}

// Call 调用函数，参数由注入器提供。函数最后一个返回值为 error 时作为错误返回，其余结果按顺序返回。
func (inj *Injector) Call(fn any) ([]any, error) {
	point, err := functionPoint(reflect.ValueOf(fn), PointFunction)
	if err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}
	rc := inj.newContext(callerSource(2))
	args, err := inj.resolveArgs(rc, point)
	if err != nil {
		return nil, err
	}
	out, err := safeCall(point.fn, args)
	if err != nil {
		return nil, &ProvisionError{Point: point, Source: rc.Source(), Cause: err}
	}

	results := make([]any, 0, len(out))
	var callErr error
	for i, v := range out {
		if i == len(out)-1 && v.Type() == errorType {
			if !v.IsNil() {
				callErr = v.Interface().(error)
			}
			continue
		}
		results = append(results, v.Interface())
	}
	return results, callErr
}

// Binding 返回 Key 的绑定，包括已创建的即时绑定
func (inj *Injector) Binding(key Key) (*Binding, bool) {
	if st, ok := inj.states[key]; ok {
		return st.binding, true
	}
	inj.jitMu.RLock()
	defer inj.jitMu.RUnlock()
	if st, ok := inj.jit[key]; ok {
		return st.binding, true
	}
	return nil, false
}

// Bindings 按注册顺序返回显式绑定
func (inj *Injector) Bindings() []*Binding {
	out := make([]*Binding, len(inj.order))
	for i, st := range inj.order {
		out[i] = st.binding
	}
	return out
}

func (inj *Injector) resolve(rc *ResolveContext, key Key, dep Dependency) (any, error) {
	st, err := inj.stateFor(key)
	if err != nil {
		if dep.toleratesMissing() && errors.Is(err, ErrNoBinding) {
			return nil, nil
		}
		return nil, &ResolutionError{Key: key, Chain: rc.Chain(), Cause: err}
	}

	if i := rc.find(key); i >= 0 {
		f := rc.frames[i]
		if !f.hasPartial || rc.constructorEdge(i, dep) {
			return nil, rc.circularError(key, i)
		}
		rc.usePartial(i)
		return f.partial, nil
	}

	rc.push(key, dep, st.binding.source)
	v, err := st.producer.Produce(rc)
	if err == nil && isNil(v) && !dep.Nullable {
		err = rc.provisionError(dep.Point, fmt.Errorf("%w: %v", ErrNullProvision, dep))
	}
	rc.pop(err == nil)
	if len(rc.frames) == 0 {
		rc.settle(err == nil)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// stateFor 查找显式绑定，否则创建并缓存即时绑定；创建失败不缓存
func (inj *Injector) stateFor(key Key) (*state, error) {
	if st, ok := inj.states[key]; ok {
		return st, nil
	}

	inj.jitMu.RLock()
	st, ok := inj.jit[key]
	inj.jitMu.RUnlock()
	if ok {
		return st, nil
	}

	inj.jitMu.Lock()
	defer inj.jitMu.Unlock()
	if st, ok := inj.jit[key]; ok {
		return st, nil
	}
	st, err := inj.createJIT(key)
	if err != nil {
		return nil, err
	}
	inj.jit[key] = st
	inj.logger.Debug("just-in-time binding created", logging.String("key", key.String()))
	return st, nil
}

func (inj *Injector) createJIT(key Key) (*state, error) {
	typ := key.typ
	switch {
	case typ == nil:
		return nil, fmt.Errorf("%w: key has no type", ErrNoBinding)
	case key.HasQualifier():
		return nil, fmt.Errorf("%w for %v", ErrNoBinding, key)
	case typ.Kind() == reflect.Interface:
		return nil, fmt.Errorf("%w for %v: interfaces need an explicit binding", ErrNoBinding, key)
	}
	if _, ok := inj.constructors[typ]; !ok && !isStructLike(typ) {
		return nil, fmt.Errorf("%w for %v: not a struct and no constructor is registered", ErrNoBinding, key)
	}

	info, err := inj.reflector.Reflect(typ)
	if err != nil {
		return nil, fmt.Errorf("just-in-time binding for %v: %w", key, err)
	}
	b := &Binding{key: key, kind: KindConstructed, jit: true, targetSet: true}
	return &state{binding: b, producer: Unscoped.Scope(key, &constructedProducer{inj: inj, info: info})}, nil
}

func (inj *Injector) construct(rc *ResolveContext, info *TypeInfo) (any, error) {
	typ := info.Type

	var result reflect.Value
	switch {
	case info.Constructor != nil:
		out, err := inj.invoke(rc, info.Constructor)
		if err != nil {
			return nil, err
		}
		if isNilValue(out) {
			return nil, rc.provisionError(info.Constructor, fmt.Errorf("constructor for %v returned nil", typ))
		}
		result = out
	case typ.Kind() == reflect.Pointer:
		result = reflect.New(typ.Elem())
	default:
		result = reflect.New(typ).Elem()
	}

	if len(info.Members) == 0 {
		return result.Interface(), nil
	}

	if typ.Kind() == reflect.Pointer {
		rc.setPartial(result.Interface())
		if err := inj.injectMembers(rc, result, info.Members); err != nil {
			return nil, err
		}
		return result.Interface(), nil
	}

	holder := reflect.New(typ)
	holder.Elem().Set(result)
	if err := inj.injectMembers(rc, holder, info.Members); err != nil {
		return nil, err
	}
	return holder.Elem().Interface(), nil
}

// injectMembers holder 为指向结构体的指针
func (inj *Injector) injectMembers(rc *ResolveContext, holder reflect.Value, members []*InjectionPoint) error {
	for _, m := range members {
		switch m.Kind {
		case PointField:
			v, err := inj.resolveDependency(rc, m.Dependencies[0])
			if err != nil {
				return err
			}
			field, err := embeddedField(holder.Elem(), m.fieldIndex)
			if err != nil {
				return rc.provisionError(m, err)
			}
			field.Set(v)

		case PointMethod:
			args, err := inj.resolveArgs(rc, m)
			if err != nil {
				return err
			}
			if len(m.fieldIndex) > 0 {
				allocEmbedded(holder.Elem(), m.fieldIndex)
			}
			method := holder.MethodByName(m.Member)
			if !method.IsValid() {
				return rc.provisionError(m, fmt.Errorf("method %s not found on %v", m.Member, holder.Type()))
			}
			out, err := safeCall(method, args)
			if err != nil {
				return rc.provisionError(m, err)
			}
			if len(out) == 1 && !out[0].IsNil() {
				return rc.provisionError(m, out[0].Interface().(error))
			}
		}
	}
	return nil
}

// embeddedField 按路径取字段，途经 nil 的嵌入指针时分配新的结构体
func embeddedField(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("embedded %v is nil and cannot be allocated", v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

// allocEmbedded 为提升注入方法的嵌入指针分配结构体，无法设置的字段保持原样
func allocEmbedded(v reflect.Value, index []int) {
	for _, x := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if v.Kind() == reflect.Pointer && v.IsNil() && v.CanSet() {
		v.Set(reflect.New(v.Type().Elem()))
	}
}

func (inj *Injector) resolveArgs(rc *ResolveContext, point *InjectionPoint) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(point.Dependencies))
	for i, dep := range point.Dependencies {
		v, err := inj.resolveDependency(rc, dep)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (inj *Injector) resolveDependency(rc *ResolveContext, dep Dependency) (reflect.Value, error) {
	v, err := inj.resolve(rc, dep.Key, dep)
	if err != nil {
		return reflect.Value{}, err
	}
	if isNil(v) {
		v = nil
	}
	if dep.optional {
		return makeOptional(dep.paramType, v), nil
	}
	if v == nil {
		return reflect.Zero(dep.paramType), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(dep.paramType) {
		return reflect.Value{}, rc.provisionError(dep.Point, fmt.Errorf("%v is not assignable to %v", rv.Type(), dep.paramType))
	}
	return rv, nil
}

// invoke 调用构造函数：T 或 (T, error)
func (inj *Injector) invoke(rc *ResolveContext, point *InjectionPoint) (reflect.Value, error) {
	args, err := inj.resolveArgs(rc, point)
	if err != nil {
		return reflect.Value{}, err
	}
	out, err := safeCall(point.fn, args)
	if err != nil {
		return reflect.Value{}, rc.provisionError(point, err)
	}
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, rc.provisionError(point, out[1].Interface().(error))
	}
	return out[0], nil
}

func (inj *Injector) callProvider(rc *ResolveContext, p Provider) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rc.provisionError(providerPoint, panicError(r))
		}
	}()
	v, err = p.Get()
	if err != nil {
		return nil, rc.provisionError(providerPoint, err)
	}
	return v, nil
}

// intercept 接口绑定的具体实例在匹配拦截器时替换为代理
func (inj *Injector) intercept(rc *ResolveContext, iface reflect.Type, v any) (any, error) {
	if isNil(v) || iface.Kind() != reflect.Interface {
		return v, nil
	}
	plan, err := inj.interceptors.planFor(iface, reflect.TypeOf(v))
	if err == nil {
		v, err = inj.interceptors.wrap(plan, v)
	}
	if err != nil {
		return nil, rc.provisionError(nil, err)
	}
	return v, nil
}

type instanceProducer struct {
	value any
}

func (p instanceProducer) Produce(*ResolveContext) (any, error) { return p.value, nil }

type constructedProducer struct {
	inj  *Injector
	info *TypeInfo
}

func (p *constructedProducer) Produce(rc *ResolveContext) (any, error) {
	return p.inj.construct(rc, p.info)
}

type linkedProducer struct {
	inj    *Injector
	key    Key
	target Key
}

func (p *linkedProducer) Produce(rc *ResolveContext) (any, error) {
	v, err := p.inj.resolve(rc, p.target, Dependency{Key: p.target, Point: linkPoint, Index: -1, Nullable: true})
	if err != nil {
		return nil, err
	}
	if p.target.typ.Kind() == reflect.Interface {
		return v, nil
	}
	return p.inj.intercept(rc, p.key.typ, v)
}

type providerKeyProducer struct {
	inj         *Injector
	providerKey Key
}

func (p *providerKeyProducer) Produce(rc *ResolveContext) (any, error) {
	v, err := p.inj.resolve(rc, p.providerKey, Dependency{Key: p.providerKey, Point: providerPoint, Index: -1})
	if err != nil {
		return nil, err
	}
	provider, ok := v.(Provider)
	if !ok {
		return nil, rc.provisionError(providerPoint, fmt.Errorf("%T does not implement di.Provider", v))
	}
	return p.inj.callProvider(rc, provider)
}

type providerInstanceProducer struct {
	inj      *Injector
	provider Provider
}

func (p *providerInstanceProducer) Produce(rc *ResolveContext) (any, error) {
	return p.inj.callProvider(rc, p.provider)
}

type constructorProducer struct {
	inj   *Injector
	key   Key
	point *InjectionPoint
}

func (p *constructorProducer) Produce(rc *ResolveContext) (any, error) {
	out, err := p.inj.invoke(rc, p.point)
	if err != nil {
		return nil, err
	}
	if isNilValue(out) {
		return nil, nil
	}
	return p.inj.intercept(rc, p.key.typ, out.Interface())
}

// safeCall 用户代码的 panic 转为错误
func safeCall(fn reflect.Value, args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn.Call(args), nil
}

func panicError(r any) error {
	if e, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", e)
	}
	return fmt.Errorf("panic: %v", r)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	return isNilValue(reflect.ValueOf(v))
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}
