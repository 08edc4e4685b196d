package di

import (
	"fmt"
	"reflect"
)

// PointKind 注入点种类
type PointKind int

const (
	PointConstructor PointKind = iota
	PointField
	PointMethod
	PointProvider
	PointLink
	PointFunction
)

func (k PointKind) String() string {
	switch k {
	case PointConstructor:
		return "constructor"
	case PointField:
		return "field"
	case PointMethod:
		return "method"
	case PointProvider:
		return "provider"
	case PointLink:
		return "link"
	case PointFunction:
		return "function"
	default:
		return fmt.Sprintf("PointKind(%d)", int(k))
	}
}

// InjectionPoint 描述一个接收注入的位置：构造函数、字段或注入方法
type InjectionPoint struct {
	Kind         PointKind
	Declaring    reflect.Type
	Member       string
	Dependencies []Dependency

	fn         reflect.Value // 构造函数 / 普通函数
	fieldIndex []int // 方法注入点为提升该方法的嵌入字段路径
	fieldType  reflect.Type
}

func (p *InjectionPoint) String() string {
	if p == nil {
		return "<none>"
	}
	switch {
	case p.Declaring != nil && p.Member != "":
		return fmt.Sprintf("%s %s of %v", p.Kind, p.Member, p.Declaring)
	case p.Member != "":
		return fmt.Sprintf("%s %s", p.Kind, p.Member)
	case p.Declaring != nil:
		return fmt.Sprintf("%s of %v", p.Kind, p.Declaring)
	default:
		return p.Kind.String()
	}
}

var (
	linkPoint     = &InjectionPoint{Kind: PointLink}
	providerPoint = &InjectionPoint{Kind: PointProvider}
)

// Dependency 一个注入点对某个 Key 的需求
type Dependency struct {
	Key      Key
	Point    *InjectionPoint
	Index    int // 参数位置，字段为 -1
	Nullable bool

	paramType reflect.Type // 实际参数/字段类型（Optional[T] 时为包装类型）
	optional  bool
}

func (d Dependency) String() string {
	if d.Point == nil {
		return d.Key.String()
	}
	if d.Index >= 0 {
		return fmt.Sprintf("%v (parameter %d of %v)", d.Key, d.Index, d.Point)
	}
	return fmt.Sprintf("%v (%v)", d.Key, d.Point)
}

// toleratesMissing 可空的成员/参数在缺少绑定时得到 nil
func (d Dependency) toleratesMissing() bool {
	if !d.Nullable || d.Point == nil {
		return false
	}
	switch d.Point.Kind {
	case PointConstructor, PointField, PointMethod, PointFunction:
		return true
	}
	return false
}

func rootDependency(key Key) Dependency {
	return Dependency{Key: key, Index: -1, Nullable: true}
}

// Optional 作为构造函数参数类型时表示可空依赖
//
//	func NewService(cache di.Optional[*Cache]) *Service
type Optional[T any] struct {
	value T
	ok    bool
}

// Get 返回值以及是否存在
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// OrElse 不存在时返回默认值
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Present 值是否存在
func (o Optional[T]) Present() bool { return o.ok }

func (Optional[T]) elemType() reflect.Type { return TypeOf[T]() }

func (o *Optional[T]) set(v any) {
	if v == nil {
		return
	}
	o.value, o.ok = v.(T), true
}

type optionalValue interface {
	elemType() reflect.Type
}

type optionalSetter interface {
	set(v any)
}

var optionalValueType = TypeOf[optionalValue]()

func optionalElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || !t.Implements(optionalValueType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(optionalValue).elemType(), true
}

func makeOptional(t reflect.Type, v any) reflect.Value {
	ptr := reflect.New(t)
	ptr.Interface().(optionalSetter).set(v)
	return ptr.Elem()
}

// ResolveContext 一次顶层解析调用的状态：正在构造的 Key 链
type ResolveContext struct {
	inj        *Injector
	frames     []*frame
	rootSource string
	// pending 引用了外层部分实例、尚未发布的单例
	pending map[*singletonProducer]*pendingSingleton
}

type pendingSingleton struct {
	value any
	// taint 所引用部分实例所在的帧
	taint int
}

type frame struct {
	key        Key
	dep        Dependency
	source     string
	partial    any
	hasPartial bool
	// taint 本帧子树引用过的最外层部分实例所在的帧，不小于自身下标表示未引用
	taint int
}

// Injector 返回所属注入器
func (rc *ResolveContext) Injector() *Injector { return rc.inj }

// Dependency 返回当前正在满足的依赖
func (rc *ResolveContext) Dependency() Dependency {
	if len(rc.frames) == 0 {
		return Dependency{}
	}
	return rc.frames[len(rc.frames)-1].dep
}

// Chain 返回当前解析链上的 Key，由外到内
func (rc *ResolveContext) Chain() []Key {
	keys := make([]Key, len(rc.frames))
	for i, f := range rc.frames {
		keys[i] = f.key
	}
	return keys
}

// Source 当前的默认声明位置：最近一个有声明位置的绑定
func (rc *ResolveContext) Source() string {
	for i := len(rc.frames) - 1; i >= 0; i-- {
		if rc.frames[i].source != "" {
			return rc.frames[i].source
		}
	}
	return rc.rootSource
}

func (rc *ResolveContext) push(key Key, dep Dependency, source string) {
	rc.frames = append(rc.frames, &frame{key: key, dep: dep, source: source, taint: len(rc.frames)})
}

// pop 弹出当前帧。ok 表示该帧成功完成，此时引用其部分实例的单例可以发布，
// 若该帧自身又引用了更外层的部分实例则继续等待；失败时这些单例被丢弃。
func (rc *ResolveContext) pop(ok bool) {
	n := len(rc.frames) - 1
	top := rc.frames[n]
	if n > 0 && top.taint < rc.frames[n-1].taint {
		rc.frames[n-1].taint = top.taint
	}
	for p, e := range rc.pending {
		if e.taint != n {
			continue
		}
		switch {
		case !ok:
			delete(rc.pending, p)
			rc.inj.locks.release(p, nil, false)
		case top.taint < n:
			e.taint = top.taint
		default:
			delete(rc.pending, p)
			rc.inj.locks.release(p, e.value, true)
		}
	}
	rc.frames[n] = nil
	rc.frames = rc.frames[:n]
}

// usePartial 当前帧拿到了第 i 帧的部分实例
func (rc *ResolveContext) usePartial(i int) {
	if top := rc.frames[len(rc.frames)-1]; i < top.taint {
		top.taint = i
	}
}

// tainted 当前帧的结果是否引用了外层尚未完成的实例
func (rc *ResolveContext) tainted() bool {
	n := len(rc.frames) - 1
	return n >= 0 && rc.frames[n].taint < n
}

// postpone 暂存单例，等所引用的部分实例完成后再决定是否发布
func (rc *ResolveContext) postpone(p *singletonProducer, v any) {
	if rc.pending == nil {
		rc.pending = make(map[*singletonProducer]*pendingSingleton)
	}
	rc.pending[p] = &pendingSingleton{value: v, taint: rc.frames[len(rc.frames)-1].taint}
}

// settle 顶层解析结束时释放仍未决定的单例
func (rc *ResolveContext) settle(ok bool) {
	for p, e := range rc.pending {
		rc.inj.locks.release(p, e.value, ok)
	}
	rc.pending = nil
}

func (rc *ResolveContext) find(key Key) int {
	for i := len(rc.frames) - 1; i >= 0; i-- {
		if rc.frames[i].key == key {
			return i
		}
	}
	return -1
}

// constructorEdge 从第 i 帧回到同一个 Key 的路径上是否有构造函数参数
func (rc *ResolveContext) constructorEdge(i int, incoming Dependency) bool {
	if incoming.Point != nil && incoming.Point.Kind == PointConstructor {
		return true
	}
	for _, f := range rc.frames[i+1:] {
		if f.dep.Point != nil && f.dep.Point.Kind == PointConstructor {
			return true
		}
	}
	return false
}

// setPartial 记录部分构造的实例，并沿链接边传给请求方
func (rc *ResolveContext) setPartial(v any) {
	for i := len(rc.frames) - 1; i >= 0; i-- {
		f := rc.frames[i]
		f.partial, f.hasPartial = v, true
		if f.dep.Point == nil || f.dep.Point.Kind != PointLink {
			return
		}
	}
}

func (rc *ResolveContext) circularError(key Key, i int) error {
	path := append(rc.Chain()[i:], key)
	return &ResolutionError{
		Key:   key,
		Chain: rc.Chain(),
		Cause: fmt.Errorf("%w cannot be broken through constructor injection: %s", ErrCircularDependency, formatPath(path)),
	}
}

func (rc *ResolveContext) provisionError(point *InjectionPoint, cause error) error {
	pe := &ProvisionError{Point: point, Source: rc.Source(), Chain: rc.Chain(), Cause: cause}
	if n := len(rc.frames); n > 0 {
		pe.Key = rc.frames[n-1].key
	}
	return pe
}
