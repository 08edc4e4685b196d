package di

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	// TagName 字段注入使用的结构体标签
	TagName = "di"
	// InjectMethodPrefix 注入方法名为 Inject，或 Inject 后接大写字母开头的后缀
	InjectMethodPrefix = "Inject"
)

var errorType = TypeOf[error]()

// TypeInfo 一个可构造类型的注入元数据
type TypeInfo struct {
	Type reflect.Type
	// Constructor 为 nil 时使用零值分配
	Constructor *InjectionPoint
	// Members 字段在前、方法在后；嵌入类型的成员先于外层类型
	Members []*InjectionPoint
}

// Reflector 提供类型的构造与成员注入元数据，可替换
type Reflector interface {
	Reflect(typ reflect.Type) (*TypeInfo, error)
}

type reflectResult struct {
	info *TypeInfo
	err  error
}

// reflector 默认实现，结果按类型缓存
type reflector struct {
	constructors map[reflect.Type]reflect.Value

	mu    sync.RWMutex
	cache map[reflect.Type]reflectResult
}

func newReflector(constructors map[reflect.Type]reflect.Value) *reflector {
	return &reflector{
		constructors: constructors,
		cache:        make(map[reflect.Type]reflectResult),
	}
}

func (r *reflector) Reflect(typ reflect.Type) (*TypeInfo, error) {
	r.mu.RLock()
	res, ok := r.cache[typ]
	r.mu.RUnlock()
	if ok {
		return res.info, res.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.cache[typ]; ok {
		return res.info, res.err
	}
	info, err := r.reflect(typ)
	r.cache[typ] = reflectResult{info: info, err: err}
	return info, err
}

func (r *reflector) hasConstructor(typ reflect.Type) bool {
	_, ok := r.constructors[typ]
	return ok
}

func (r *reflector) reflect(typ reflect.Type) (*TypeInfo, error) {
	info := &TypeInfo{Type: typ}

	if fn, ok := r.constructors[typ]; ok {
		point, err := functionPoint(fn, PointConstructor)
		if err != nil {
			return nil, err
		}
		point.Declaring = typ
		info.Constructor = point
	} else if !isStructLike(typ) {
		switch typ.Kind() {
		case reflect.Interface:
			return nil, fmt.Errorf("%v is an interface and no implementation was bound", typ)
		default:
			return nil, fmt.Errorf("%v is not instantiable: register a constructor for it", typ)
		}
	}

	if isStructLike(typ) {
		members, err := memberPoints(typ)
		if err != nil {
			return nil, err
		}
		info.Members = members
	}
	return info, nil
}

func isStructLike(typ reflect.Type) bool {
	if typ.Kind() == reflect.Struct {
		return true
	}
	return typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Struct
}

// functionPoint 从函数签名生成注入点：参数即依赖
func functionPoint(fn reflect.Value, kind PointKind) (*InjectionPoint, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("expected a function, got %v", fn)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("variadic function %v cannot be injected", ft)
	}

	point := &InjectionPoint{Kind: kind, Member: funcName(fn), fn: fn}
	deps, err := paramDependencies(point, ft, 0)
	if err != nil {
		return nil, err
	}
	point.Dependencies = deps
	return point, nil
}

// constructorOutput 检查构造函数返回 T 或 (T, error)
func constructorOutput(ft reflect.Type) (reflect.Type, error) {
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errorType {
			return nil, fmt.Errorf("constructor %v returns only an error", ft)
		}
		return ft.Out(0), nil
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("second result of constructor %v must be error", ft)
		}
		return ft.Out(0), nil
	default:
		return nil, fmt.Errorf("constructor %v must return T or (T, error)", ft)
	}
}

func paramDependencies(point *InjectionPoint, ft reflect.Type, offset int) ([]Dependency, error) {
	deps := make([]Dependency, 0, ft.NumIn()-offset)
	for i := offset; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		dep := Dependency{Key: NewKey(pt), Point: point, Index: i - offset, paramType: pt}
		if elem, ok := optionalElem(pt); ok {
			dep.Key = NewKey(elem)
			dep.Nullable = true
			dep.optional = true
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func memberPoints(typ reflect.Type) ([]*InjectionPoint, error) {
	st := typ
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	var members []*InjectionPoint
	if err := collectFields(typ, st, nil, map[reflect.Type]bool{st: true}, &members); err != nil {
		return nil, err
	}

	methods, err := injectMethods(typ, st)
	if err != nil {
		return nil, err
	}
	return append(members, methods...), nil
}

// collectFields 先递归嵌入的结构体（含导出的嵌入指针），再处理本层带标签的字段
func collectFields(declaring, st reflect.Type, prefix []int, visiting map[reflect.Type]bool, out *[]*InjectionPoint) error {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		et, isPtr := embeddedStruct(f)
		if et == nil || visiting[et] {
			continue
		}
		if _, tagged := f.Tag.Lookup(TagName); tagged {
			continue
		}
		before := len(*out)
		visiting[et] = true
		err := collectFields(declaring, et, indexPath(prefix, i), visiting, out)
		delete(visiting, et)
		if err != nil {
			return err
		}
		if isPtr && !f.IsExported() && len(*out) > before {
			return fmt.Errorf("embedded %v of %v has injected fields but is unexported and cannot be allocated", f.Type, st)
		}
	}

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(TagName)
		if !ok || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return fmt.Errorf("field %s of %v is tagged for injection but not exported", f.Name, st)
		}

		qualifier, nullable := parseTag(tag)
		point := &InjectionPoint{
			Kind:       PointField,
			Declaring:  declaring,
			Member:     f.Name,
			fieldIndex: indexPath(prefix, i),
			fieldType:  f.Type,
		}
		dep := Dependency{
			Key:       NewNamedKey(f.Type, qualifier),
			Point:     point,
			Index:     -1,
			Nullable:  nullable,
			paramType: f.Type,
		}
		if elem, ok := optionalElem(f.Type); ok {
			dep.Key = NewNamedKey(elem, qualifier)
			dep.Nullable = true
			dep.optional = true
		}
		point.Dependencies = []Dependency{dep}
		*out = append(*out, point)
	}
	return nil
}

// parseTag 解析 `di:"name,?"`；单独的 "?" 或 "optional" 表示可空且无限定名
func parseTag(tag string) (qualifier string, nullable bool) {
	parts := strings.Split(tag, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "?" || p == "optional" {
			nullable = true
			continue
		}
		if i == 0 {
			qualifier = p
		}
	}
	return qualifier, nullable
}

// embeddedStruct 嵌入的结构体或结构体指针，返回结构体类型
func embeddedStruct(f reflect.StructField) (reflect.Type, bool) {
	if !f.Anonymous {
		return nil, false
	}
	switch t := f.Type; {
	case t.Kind() == reflect.Struct:
		return t, false
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return t.Elem(), true
	}
	return nil, false
}

func indexPath(prefix []int, i int) []int {
	path := make([]int, len(prefix)+1)
	copy(path, prefix)
	path[len(prefix)] = i
	return path
}

// isInjectMethod 名称符合注入方法的约定，且不是变参、只返回 error 或没有返回值
func isInjectMethod(name string, mt reflect.Type) bool {
	rest, ok := strings.CutPrefix(name, InjectMethodPrefix)
	if !ok {
		return false
	}
	if rest != "" {
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsUpper(r) {
			return false
		}
	}
	if mt.IsVariadic() {
		return false
	}
	return mt.NumOut() == 0 || (mt.NumOut() == 1 && mt.Out(0) == errorType)
}

// injectMethods 收集注入方法，嵌入类型提升来的方法排在前面。
// 不符合约定的 Inject* 方法（如 Injected() bool）视为普通方法。
func injectMethods(typ, st reflect.Type) ([]*InjectionPoint, error) {
	recv := typ
	if recv.Kind() != reflect.Pointer {
		recv = reflect.PointerTo(st)
	}

	var names []string
	paths := make(map[string][]int)
	visiting := map[reflect.Type]bool{st: true}
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			if et, _ := embeddedStruct(t.Field(i)); et != nil && !visiting[et] {
				visiting[et] = true
				walk(et, indexPath(prefix, i))
				delete(visiting, et)
			}
		}
		pt := reflect.PointerTo(t)
		for i := 0; i < pt.NumMethod(); i++ {
			name := pt.Method(i).Name
			if _, seen := paths[name]; seen || !strings.HasPrefix(name, InjectMethodPrefix) {
				continue
			}
			paths[name] = prefix
			names = append(names, name)
		}
	}
	walk(st, nil)

	points := make([]*InjectionPoint, 0, len(names))
	for _, name := range names {
		m, ok := recv.MethodByName(name)
		if !ok || !isInjectMethod(name, m.Type) {
			continue
		}
		point := &InjectionPoint{Kind: PointMethod, Declaring: typ, Member: name}
		point.fieldIndex = paths[name]
		deps, err := paramDependencies(point, m.Type, 1)
		if err != nil {
			return nil, err
		}
		point.Dependencies = deps
		points = append(points, point)
	}
	return points, nil
}
