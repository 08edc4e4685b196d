package core

import (
	"reflect"
	"sync"

	"github.com/gocrud/inject/di"
)

// FeatureCollection 按类型存放构建时特性 (web.Builder 等)
type FeatureCollection struct {
	features sync.Map
}

// Set 注册一个特性，同类型覆盖
func (fc *FeatureCollection) Set(feature any) {
	fc.features.Store(reflect.TypeOf(feature), feature)
}

// Get 获取一个特性
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 从 Runtime 获取特性，不存在时返回零值
func GetFeature[T any](rt *Runtime) T {
	v, _ := LookupFeature[T](rt)
	return v
}

// LookupFeature 从 Runtime 获取特性
func LookupFeature[T any](rt *Runtime) (T, bool) {
	var zero T
	if val, ok := rt.Features.Get(di.TypeOf[T]()); ok {
		return val.(T), true
	}
	return zero, false
}

// FeatureOrCreate 返回已有特性；不存在时调用 create 创建并登记，created 为 true
func FeatureOrCreate[T any](rt *Runtime, create func() T) (feature T, created bool) {
	if v, ok := LookupFeature[T](rt); ok {
		return v, false
	}
	v := create()
	rt.Features.Set(v)
	return v, true
}
