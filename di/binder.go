package di

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
)

// Binder 收集绑定规则。它只在配置阶段由单个 goroutine 使用，
// 显式传给每个模块。错误被记录下来，在编译时统一报告。
type Binder struct {
	bindings     []*Binding
	constants    []*ConstantBindingBuilder
	errors       []Message
	aspects      []*MethodAspect
	proxies      map[reflect.Type]proxyFactory
	constructors map[reflect.Type]reflect.Value
	requests     []injectionRequest
}

type injectionRequest struct {
	target any
	source string
}

// NewBinder 创建空的 Binder
func NewBinder() *Binder {
	return &Binder{
		proxies:      make(map[reflect.Type]proxyFactory),
		constructors: make(map[reflect.Type]reflect.Value),
	}
}

// Bind 开始一条绑定规则；不再追加目标时即为未指定目标的绑定
func (b *Binder) Bind(key Key) *BindingBuilder {
	return b.bind(key, 3)
}

func (b *Binder) bind(key Key, skip int) *BindingBuilder {
	binding := &Binding{key: key, source: callerSource(skip), kind: KindConstructed}
	if key.IsZero() {
		b.addError(binding.source, "binding key has no type")
	}
	b.bindings = append(b.bindings, binding)
	return &BindingBuilder{binder: b, binding: binding}
}

// Bind 泛型版本：Bind[T](b)
func Bind[T any](b *Binder) *BindingBuilder {
	return b.bind(KeyOf[T](), 3)
}

// BindNamed 泛型版本：BindNamed[T](b, "name")
func BindNamed[T any](b *Binder, qualifier string) *BindingBuilder {
	return b.bind(NamedKeyOf[T](qualifier), 3)
}

// AddBinding 添加预先构造的绑定
func (b *Binder) AddBinding(key Key, binding *Binding) {
	source := callerSource(2)
	if binding == nil {
		b.addError(source, fmt.Sprintf("nil binding for %v", key))
		return
	}
	binding.key = key
	binding.source = source
	if key.IsZero() {
		b.addError(source, "binding key has no type")
	}
	b.bindings = append(b.bindings, binding)
}

// BindConstant 绑定带限定名的常量，值类型决定 Key 的类型
func (b *Binder) BindConstant(qualifier string) *ConstantBindingBuilder {
	cb := &ConstantBindingBuilder{binder: b, qualifier: qualifier, source: callerSource(2)}
	if qualifier == "" {
		b.addError(cb.source, "constant bindings require a qualifier")
	}
	b.constants = append(b.constants, cb)
	return cb
}

// RegisterConstructor 声明某个类型的构造方式：func(deps...) T 或 func(deps...) (T, error)
func (b *Binder) RegisterConstructor(fn any) {
	source := callerSource(2)
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		b.addError(source, fmt.Sprintf("constructor must be a function, got %T", fn))
		return
	}
	out, err := constructorOutput(v.Type())
	if err != nil {
		b.addError(source, err.Error())
		return
	}
	if _, dup := b.constructors[out]; dup {
		b.addError(source, fmt.Sprintf("a constructor for %v is already registered", out))
		return
	}
	b.constructors[out] = v
}

// RequestInjection 在编译时对已有值执行成员注入
func (b *Binder) RequestInjection(target any) {
	source := callerSource(2)
	if !isStructPointer(reflect.TypeOf(target)) {
		b.addError(source, fmt.Sprintf("injection requested for %T, expected a pointer to struct", target))
		return
	}
	b.requests = append(b.requests, injectionRequest{target: target, source: source})
}

// Install 依次配置模块
func (b *Binder) Install(modules ...Module) {
	for _, m := range modules {
		if m == nil {
			b.addError(callerSource(2), "nil module")
			continue
		}
		m.Configure(b)
	}
}

// AddError 模块可以记录自己的配置错误
func (b *Binder) AddError(err error) {
	if err == nil {
		return
	}
	b.errors = append(b.errors, Message{Source: callerSource(2), Text: "module error", Cause: err})
}

// Errors 返回按记录顺序排列的配置错误
func (b *Binder) Errors() []Message {
	return append([]Message(nil), b.errors...)
}

func (b *Binder) addError(source, text string) {
	b.errors = append(b.errors, Message{Source: source, Text: text})
}

// BindingBuilder 链式配置一条绑定
type BindingBuilder struct {
	binder  *Binder
	binding *Binding
}

func (bb *BindingBuilder) setTarget(kind BindingKind) bool {
	if bb.binding.targetSet {
		bb.binder.addError(callerSource(3), fmt.Sprintf("implementation for %v is set more than once", bb.binding.key))
		return false
	}
	bb.binding.targetSet = true
	bb.binding.kind = kind
	return true
}

// To 链接到另一个 Key
func (bb *BindingBuilder) To(target Key) *BindingBuilder {
	if bb.setTarget(KindLinked) {
		bb.binding.target = target
	}
	return bb
}

// ToInstance 绑定到固定实例
func (bb *BindingBuilder) ToInstance(instance any) *BindingBuilder {
	if bb.setTarget(KindInstance) {
		bb.binding.instance = instance
	}
	return bb
}

// ToProvider 通过可注入的 Provider 获取实例
func (bb *BindingBuilder) ToProvider(providerKey Key) *BindingBuilder {
	if bb.setTarget(KindProvider) {
		bb.binding.target = providerKey
	}
	return bb
}

// ToProviderInstance 通过 Provider 实例获取
func (bb *BindingBuilder) ToProviderInstance(p Provider) *BindingBuilder {
	if bb.setTarget(KindProviderInstance) {
		bb.binding.provider = p
	}
	return bb
}

// ToConstructor 调用构造函数获取，参数由注入器提供
func (bb *BindingBuilder) ToConstructor(fn any) *BindingBuilder {
	if bb.setTarget(KindConstructor) {
		bb.binding.ctor = reflect.ValueOf(fn)
	}
	return bb
}

// In 设置作用域
func (bb *BindingBuilder) In(scope Scope) *BindingBuilder {
	source := callerSource(2)
	switch {
	case scope == nil:
		bb.binder.addError(source, fmt.Sprintf("nil scope for %v", bb.binding.key))
	case bb.binding.scopeSet:
		bb.binder.addError(source, fmt.Sprintf("scope for %v is set more than once", bb.binding.key))
	default:
		bb.binding.scope = scope
		bb.binding.scopeSet = true
	}
	return bb
}

// AsEagerSingleton 单例，并在编译时立即创建
func (bb *BindingBuilder) AsEagerSingleton() {
	bb.In(Singleton)
	bb.binding.eager = true
}

// ConstantBindingBuilder 常量绑定，必须调用 To 补全
type ConstantBindingBuilder struct {
	binder    *Binder
	qualifier string
	source    string
	binding   *Binding
}

// To 设置常量值
func (cb *ConstantBindingBuilder) To(value any) {
	if cb.binding != nil {
		cb.binder.addError(callerSource(2), fmt.Sprintf("constant value for %q is set more than once", cb.qualifier))
		return
	}
	if value == nil {
		cb.binder.addError(callerSource(2), fmt.Sprintf("constant value for %q is nil", cb.qualifier))
		return
	}
	cb.binding = &Binding{
		key:       NewNamedKey(reflect.TypeOf(value), cb.qualifier),
		source:    cb.source,
		kind:      KindInstance,
		instance:  value,
		targetSet: true,
	}
	cb.binder.bindings = append(cb.binder.bindings, cb.binding)
}

func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
}

func funcName(fn reflect.Value) string {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return "<nil>"
	}
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

func isStructPointer(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}
