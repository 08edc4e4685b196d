package web

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/di"
)

// Controller 控制器接口
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// Middleware 由注入器创建的中间件
type Middleware interface {
	Handle(c *gin.Context)
}

// Builder Web 主机构建器（基于 Gin），同一运行时内的多次 New 共享一个 Builder
type Builder struct {
	port        int
	mode        string
	engine      *gin.Engine
	controllers []any
	middleware  []any
}

// NewBuilder 创建 Web 构建器
func NewBuilder() *Builder {
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Builder{
		port:   8080,
		mode:   gin.ReleaseMode,
		engine: engine,
	}
}

// UsePort 设置端口，0 表示随机端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	b.mode = mode
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddMiddleware 注册由注入器解析的中间件，参数形式同 AddControllers，
// 解析结果必须实现 Middleware。中间件在控制器路由之前挂载
func (b *Builder) AddMiddleware(middleware ...any) *Builder {
	b.middleware = append(b.middleware, middleware...)
	return b
}

// AddControllers 注册控制器，参数可以是：
//  1. 构造函数 (例如 NewUserController)，参数由注入器提供，结果为单例
//  2. 控制器实例指针 (例如 &UserController{})，`di` 字段在注入器创建时注入
//  3. di.Key，例如绑定到接口的控制器
//  4. reflect.Type，按即时绑定解析
//
// 控制器在主机启动时解析并注册路由
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// bindComponents 为控制器或中间件登记绑定并返回解析用的 Key
func bindComponents(b *di.Binder, kind string, items []any) []di.Key {
	keys := make([]di.Key, 0, len(items))
	for _, item := range items {
		key, err := bindComponent(b, item)
		if err != nil {
			b.AddError(fmt.Errorf("web: %s %T: %w", kind, item, err))
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func bindComponent(b *di.Binder, item any) (di.Key, error) {
	switch v := item.(type) {
	case nil:
		return di.Key{}, fmt.Errorf("nil component")
	case di.Key:
		if v.IsZero() {
			return di.Key{}, fmt.Errorf("zero key")
		}
		return v, nil
	case reflect.Type:
		return di.NewKey(v), nil
	}

	t := reflect.TypeOf(item)
	switch t.Kind() {
	case reflect.Func:
		if t.NumOut() == 0 {
			return di.Key{}, fmt.Errorf("constructor returns nothing")
		}
		key := di.NewKey(t.Out(0))
		b.Bind(key).ToConstructor(item).In(di.Singleton)
		return key, nil
	case reflect.Pointer:
		key := di.NewKey(t)
		b.Bind(key).ToInstance(item)
		return key, nil
	default:
		return di.Key{}, fmt.Errorf("expected a constructor, pointer, di.Key or reflect.Type")
	}
}
