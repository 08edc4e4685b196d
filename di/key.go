package di

import (
	"fmt"
	"reflect"
)

// Key 标识一个绑定：类型 + 可选的限定名。
// Key 是可比较的值类型，类型与限定名都相同的两个 Key 相等，可直接作为 map 键。
type Key struct {
	typ       reflect.Type
	qualifier string
}

// NewKey 创建无限定名的 Key
func NewKey(typ reflect.Type) Key {
	return Key{typ: typ}
}

// NewNamedKey 创建带限定名的 Key
func NewNamedKey(typ reflect.Type, qualifier string) Key {
	return Key{typ: typ, qualifier: qualifier}
}

// KeyOf 返回类型 T 的 Key
func KeyOf[T any]() Key {
	return Key{typ: TypeOf[T]()}
}

// NamedKeyOf 返回类型 T 带限定名的 Key
func NamedKeyOf[T any](qualifier string) Key {
	return Key{typ: TypeOf[T](), qualifier: qualifier}
}

// TypeOf 返回 T 的 reflect.Type，接口类型同样适用
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Type 返回绑定的类型
func (k Key) Type() reflect.Type { return k.typ }

// Qualifier 返回限定名，未限定时为空字符串
func (k Key) Qualifier() string { return k.qualifier }

// HasQualifier 是否带限定名
func (k Key) HasQualifier() bool { return k.qualifier != "" }

// WithQualifier 返回同类型、不同限定名的新 Key
func (k Key) WithQualifier(qualifier string) Key {
	return Key{typ: k.typ, qualifier: qualifier}
}

// WithoutQualifier 返回去掉限定名的 Key
func (k Key) WithoutQualifier() Key {
	return Key{typ: k.typ}
}

// IsZero 零值 Key 不指向任何类型
func (k Key) IsZero() bool { return k.typ == nil }

func (k Key) String() string {
	if k.typ == nil {
		return "Key[<nil>]"
	}
	if k.qualifier != "" {
		return fmt.Sprintf("Key[%v, %q]", k.typ, k.qualifier)
	}
	return fmt.Sprintf("Key[%v]", k.typ)
}
