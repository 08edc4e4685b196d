package di

import (
	"fmt"
	"reflect"
	"sync"
)

// MethodInterceptor 环绕一次方法调用。调用 inv.Proceed() 进入下一个拦截器或原方法，
// 不调用则短路，返回值即方法的结果。
type MethodInterceptor interface {
	Invoke(inv *Invocation) []any
}

// InterceptorFunc 函数形式的拦截器
type InterceptorFunc func(inv *Invocation) []any

func (f InterceptorFunc) Invoke(inv *Invocation) []any { return f(inv) }

// MethodAspect 类型匹配 + 方法匹配 + 有序拦截器列表
type MethodAspect struct {
	types        Matcher[reflect.Type]
	methods      Matcher[reflect.Method]
	interceptors []MethodInterceptor
	source       string
}

// BindInterceptor 为匹配的类型与方法注册拦截器，多次注册按顺序串联
func (b *Binder) BindInterceptor(types Matcher[reflect.Type], methods Matcher[reflect.Method], interceptors ...MethodInterceptor) {
	source := callerSource(2)
	if types == nil || methods == nil {
		b.addError(source, "interceptor binding requires a type matcher and a method matcher")
		return
	}
	if len(interceptors) == 0 {
		b.addError(source, "interceptor binding without interceptors")
		return
	}
	for _, i := range interceptors {
		if i == nil {
			b.addError(source, "nil interceptor")
			return
		}
	}
	b.aspects = append(b.aspects, &MethodAspect{
		types:        types,
		methods:      methods,
		interceptors: append([]MethodInterceptor(nil), interceptors...),
		source:       source,
	})
}

type proxyFactory func(d *Dispatcher) any

// RegisterProxy 为接口注册代理工厂；代理实现该接口并把调用转给 Dispatcher
func (b *Binder) RegisterProxy(iface reflect.Type, factory func(d *Dispatcher) any) {
	source := callerSource(2)
	switch {
	case iface == nil || iface.Kind() != reflect.Interface:
		b.addError(source, fmt.Sprintf("proxy target %v is not an interface", iface))
	case factory == nil:
		b.addError(source, fmt.Sprintf("nil proxy factory for %v", iface))
	default:
		if _, dup := b.proxies[iface]; dup {
			b.addError(source, fmt.Sprintf("a proxy for %v is already registered", iface))
			return
		}
		b.proxies[iface] = factory
	}
}

// Proxy 泛型版本的 RegisterProxy
//
//	di.Proxy[Greeter](b, func(d *di.Dispatcher) Greeter { return greeterProxy{d} })
func Proxy[I any](b *Binder, factory func(d *Dispatcher) I) {
	iface := TypeOf[I]()
	source := callerSource(2)
	if iface.Kind() != reflect.Interface {
		b.addError(source, fmt.Sprintf("proxy target %v is not an interface", iface))
		return
	}
	if _, dup := b.proxies[iface]; dup {
		b.addError(source, fmt.Sprintf("a proxy for %v is already registered", iface))
		return
	}
	b.proxies[iface] = func(d *Dispatcher) any { return factory(d) }
}

// Invocation 一次被拦截的调用，每次调用新建
type Invocation struct {
	Method   reflect.Method
	Receiver any
	Args     []any

	chain  *methodChain
	target reflect.Value
	index  int
}

// Proceed 执行下一个拦截器；链尾调用原方法。可多次调用（例如重试）。
func (inv *Invocation) Proceed() []any {
	if inv.index < len(inv.chain.interceptors) {
		i := inv.index
		inv.index++
		defer func() { inv.index = i }()
		return inv.chain.interceptors[i].Invoke(inv)
	}
	return callMethod(inv.target, inv.chain.method, inv.Args)
}

type methodChain struct {
	method       reflect.Method
	interceptors []MethodInterceptor
}

// Dispatcher 代理调用的入口
type Dispatcher struct {
	target reflect.Value
	plan   *interceptPlan
}

// Target 被代理的原始实例
func (d *Dispatcher) Target() any { return d.target.Interface() }

// Call 调用名为 method 的方法；匹配的方法经过拦截器链
func (d *Dispatcher) Call(method string, args ...any) []any {
	if chain, ok := d.plan.chains[method]; ok {
		inv := &Invocation{
			Method:   chain.method,
			Receiver: d.target.Interface(),
			Args:     args,
			chain:    chain,
			target:   d.target,
		}
		return inv.Proceed()
	}
	m, ok := d.plan.concrete.MethodByName(method)
	if !ok {
		panic(fmt.Sprintf("di: %v has no method %s", d.plan.concrete, method))
	}
	return callMethod(d.target, m, args)
}

func callMethod(target reflect.Value, m reflect.Method, args []any) []any {
	mt := m.Type
	if len(args) != mt.NumIn()-1 {
		panic(fmt.Sprintf("di: %s expects %d arguments, got %d", m.Name, mt.NumIn()-1, len(args)))
	}
	in := make([]reflect.Value, len(args)+1)
	in[0] = target
	for i, a := range args {
		in[i+1] = argValue(a, mt.In(i+1))
	}

	var out []reflect.Value
	if mt.IsVariadic() {
		out = m.Func.CallSlice(in)
	} else {
		out = m.Func.Call(in)
	}

	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results
}

func argValue(a any, t reflect.Type) reflect.Value {
	if a == nil {
		return reflect.Zero(t)
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v
	}
	if v.Type().ConvertibleTo(t) {
		return v.Convert(t)
	}
	panic(fmt.Sprintf("di: argument of type %v is not assignable to %v", v.Type(), t))
}

type interceptPlan struct {
	iface    reflect.Type
	concrete reflect.Type
	chains   map[string]*methodChain
	factory  proxyFactory
}

type planKey struct {
	iface    reflect.Type
	concrete reflect.Type
}

type planResult struct {
	plan *interceptPlan
	err  error
}

// interceptors 按 (接口, 具体类型) 缓存拦截计划
type interceptors struct {
	aspects []*MethodAspect
	proxies map[reflect.Type]proxyFactory

	mu    sync.Mutex
	plans map[planKey]planResult
}

func newInterceptors(aspects []*MethodAspect, proxies map[reflect.Type]proxyFactory) *interceptors {
	return &interceptors{aspects: aspects, proxies: proxies, plans: make(map[planKey]planResult)}
}

// planFor 返回 nil 表示不需要拦截
func (x *interceptors) planFor(iface, concrete reflect.Type) (*interceptPlan, error) {
	if len(x.aspects) == 0 || iface.Kind() != reflect.Interface || concrete.Kind() == reflect.Interface {
		return nil, nil
	}
	key := planKey{iface: iface, concrete: concrete}

	x.mu.Lock()
	defer x.mu.Unlock()
	if res, ok := x.plans[key]; ok {
		return res.plan, res.err
	}
	plan, err := x.build(iface, concrete)
	x.plans[key] = planResult{plan: plan, err: err}
	return plan, err
}

func (x *interceptors) build(iface, concrete reflect.Type) (*interceptPlan, error) {
	chains := make(map[string]*methodChain)
	for _, a := range x.aspects {
		if !a.types.Matches(concrete) {
			continue
		}
		for i := 0; i < concrete.NumMethod(); i++ {
			m := concrete.Method(i)
			if isInjectMethod(m.Name, m.Type) || !a.methods.Matches(m) {
				continue
			}
			if _, ok := iface.MethodByName(m.Name); !ok {
				return nil, fmt.Errorf("method %s of %v matches the interceptor bound at %s but is not declared by %v and cannot be intercepted",
					m.Name, concrete, a.source, iface)
			}
			c, ok := chains[m.Name]
			if !ok {
				c = &methodChain{method: m}
				chains[m.Name] = c
			}
			c.interceptors = append(c.interceptors, a.interceptors...)
		}
	}
	if len(chains) == 0 {
		return nil, nil
	}

	factory, ok := x.proxies[iface]
	if !ok {
		return nil, fmt.Errorf("%v has intercepted methods but no proxy is registered for %v", concrete, iface)
	}
	return &interceptPlan{iface: iface, concrete: concrete, chains: chains, factory: factory}, nil
}

// wrap 按计划返回代理；plan 为 nil 时原样返回
func (x *interceptors) wrap(plan *interceptPlan, v any) (proxy any, err error) {
	if plan == nil {
		return v, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("proxy factory for %v panicked: %v", plan.iface, r)
		}
	}()
	proxy = plan.factory(&Dispatcher{target: reflect.ValueOf(v), plan: plan})
	if proxy == nil || !reflect.TypeOf(proxy).Implements(plan.iface) {
		return nil, fmt.Errorf("proxy factory for %v returned %T which does not implement it", plan.iface, proxy)
	}
	return proxy, nil
}
