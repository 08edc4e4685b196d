package di

import (
	"fmt"
	"reflect"
)

// BindingKind 绑定的产生方式
type BindingKind int

const (
	// KindConstructed 由注入器构造（未指定目标或即时绑定）
	KindConstructed BindingKind = iota
	// KindInstance 固定实例
	KindInstance
	// KindLinked 转发到另一个 Key
	KindLinked
	// KindProvider 通过一个可注入的 Provider 的 Key 获取
	KindProvider
	// KindProviderInstance 通过固定的 Provider 实例获取
	KindProviderInstance
	// KindConstructor 调用参数可注入的函数
	KindConstructor
)

func (k BindingKind) String() string {
	switch k {
	case KindConstructed:
		return "Constructed"
	case KindInstance:
		return "Instance"
	case KindLinked:
		return "Linked"
	case KindProvider:
		return "Provider"
	case KindProviderInstance:
		return "ProviderInstance"
	case KindConstructor:
		return "Constructor"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// Provider 按需产生实例
type Provider interface {
	Get() (any, error)
}

// ProviderFunc 函数形式的 Provider
type ProviderFunc func() (any, error)

func (f ProviderFunc) Get() (any, error) { return f() }

var providerType = TypeOf[Provider]()

// Binding 一条绑定规则，编译后只读
type Binding struct {
	key    Key
	source string
	kind   BindingKind

	instance any
	target   Key
	provider Provider
	ctor     reflect.Value

	scope     Scope
	scopeSet  bool
	targetSet bool
	eager     bool
	jit       bool
}

// NewInstanceBinding 绑定到固定实例
func NewInstanceBinding(instance any) *Binding {
	return &Binding{kind: KindInstance, instance: instance, targetSet: true}
}

// NewLinkedBinding 转发到目标 Key
func NewLinkedBinding(target Key, scope Scope) *Binding {
	return &Binding{kind: KindLinked, target: target, targetSet: true, scope: scope, scopeSet: scope != nil}
}

// NewProviderBinding 通过 Provider 实例产生
func NewProviderBinding(p Provider, scope Scope) *Binding {
	return &Binding{kind: KindProviderInstance, provider: p, targetSet: true, scope: scope, scopeSet: scope != nil}
}

// NewConstructorBinding 调用参数可注入的构造函数产生
func NewConstructorBinding(fn any, scope Scope) *Binding {
	return &Binding{kind: KindConstructor, ctor: reflect.ValueOf(fn), targetSet: true, scope: scope, scopeSet: scope != nil}
}

func (b *Binding) Key() Key           { return b.key }
func (b *Binding) Source() string     { return b.source }
func (b *Binding) Kind() BindingKind  { return b.kind }
func (b *Binding) IsEager() bool      { return b.eager }
func (b *Binding) IsJustInTime() bool { return b.jit }

// Scope 生效的作用域，未设置时为 Unscoped
func (b *Binding) Scope() Scope {
	if b.scope == nil {
		return Unscoped
	}
	return b.scope
}

// Target 链接绑定的目标或 Provider 的 Key
func (b *Binding) Target() Key { return b.target }

// Instance 实例绑定的值
func (b *Binding) Instance() any { return b.instance }

func (b *Binding) String() string {
	s := fmt.Sprintf("%s binding %v", b.kind, b.key)
	switch b.kind {
	case KindLinked, KindProvider:
		s += fmt.Sprintf(" -> %v", b.target)
	case KindConstructor:
		s += fmt.Sprintf(" -> %s", funcName(b.ctor))
	}
	return s + fmt.Sprintf(" in %v", b.Scope())
}
