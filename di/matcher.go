package di

import (
	"reflect"
	"strings"
)

// Matcher 判断一个值是否匹配
type Matcher[T any] interface {
	Matches(v T) bool
}

// MatcherFunc 函数形式的 Matcher
type MatcherFunc[T any] func(v T) bool

func (f MatcherFunc[T]) Matches(v T) bool { return f(v) }

// And 全部匹配
func And[T any](ms ...Matcher[T]) Matcher[T] {
	return MatcherFunc[T](func(v T) bool {
		for _, m := range ms {
			if !m.Matches(v) {
				return false
			}
		}
		return true
	})
}

// Or 任一匹配
func Or[T any](ms ...Matcher[T]) Matcher[T] {
	return MatcherFunc[T](func(v T) bool {
		for _, m := range ms {
			if m.Matches(v) {
				return true
			}
		}
		return false
	})
}

// Not 取反
func Not[T any](m Matcher[T]) Matcher[T] {
	return MatcherFunc[T](func(v T) bool { return !m.Matches(v) })
}

// AnyType 匹配所有类型
func AnyType() Matcher[reflect.Type] {
	return MatcherFunc[reflect.Type](func(reflect.Type) bool { return true })
}

// TypeIs 匹配指定类型
func TypeIs(t reflect.Type) Matcher[reflect.Type] {
	return MatcherFunc[reflect.Type](func(v reflect.Type) bool { return v == t })
}

// SubtypeOf 匹配可赋值给 T 的类型（T 为接口时即实现了 T）
func SubtypeOf[T any]() Matcher[reflect.Type] {
	target := TypeOf[T]()
	return MatcherFunc[reflect.Type](func(v reflect.Type) bool {
		return v.AssignableTo(target)
	})
}

// InPackage 匹配声明在指定包路径下的类型，指针取其元素类型
func InPackage(path string) Matcher[reflect.Type] {
	return MatcherFunc[reflect.Type](func(v reflect.Type) bool {
		for v.Kind() == reflect.Pointer {
			v = v.Elem()
		}
		return v.PkgPath() == path
	})
}

// AnyMethod 匹配所有方法
func AnyMethod() Matcher[reflect.Method] {
	return MatcherFunc[reflect.Method](func(reflect.Method) bool { return true })
}

// MethodNamed 按名称匹配
func MethodNamed(names ...string) Matcher[reflect.Method] {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return MatcherFunc[reflect.Method](func(m reflect.Method) bool {
		_, ok := set[m.Name]
		return ok
	})
}

// MethodPrefix 按名称前缀匹配
func MethodPrefix(prefix string) Matcher[reflect.Method] {
	return MatcherFunc[reflect.Method](func(m reflect.Method) bool {
		return strings.HasPrefix(m.Name, prefix)
	})
}
