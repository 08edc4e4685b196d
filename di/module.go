package di

import "fmt"

// Module 一组绑定声明，接收显式传入的 Binder
type Module interface {
	Configure(b *Binder)
}

// ModuleFunc 函数形式的 Module
type ModuleFunc func(b *Binder)

func (f ModuleFunc) Configure(b *Binder) { f(b) }

// Get 解析类型 T
func Get[T any](inj *Injector) (T, error) {
	return get[T](inj, KeyOf[T]())
}

// GetNamed 解析带限定名的类型 T
func GetNamed[T any](inj *Injector, qualifier string) (T, error) {
	return get[T](inj, NamedKeyOf[T](qualifier))
}

// MustGet 解析失败时 panic，用于启动代码
func MustGet[T any](inj *Injector) T {
	v, err := Get[T](inj)
	if err != nil {
		panic(err)
	}
	return v
}

func get[T any](inj *Injector, key Key) (T, error) {
	var zero T
	v, err := inj.Resolve(key)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: %v resolved to %T", key, v)
	}
	return t, nil
}
