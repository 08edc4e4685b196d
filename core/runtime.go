package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Runtime 是框架的状态容器：收集绑定、生命周期钩子与托管服务，最终编译为注入器
type Runtime struct {
	// Binder 所有模块共享的绑定注册表
	Binder *di.Binder

	// Features 存放构建时特性 (web.Builder 等)
	Features FeatureCollection

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// Config 应用配置，默认为空配置
	Config config.Configuration

	// Logger 框架日志
	Logger logging.Logger

	// Stage 注入器编译阶段
	Stage di.Stage

	// ShutdownTimeout 优雅关闭的超时时间
	ShutdownTimeout time.Duration

	// ErrorHandler 记录运行时产生的严重错误
	ErrorHandler func(err error)

	modules    []di.Module
	hosted     []HostedEntry
	compiled   bool
	shutdownCh chan struct{}
	shutdown   sync.Once
}

// HostedEntry 托管服务在注入器中的 Key
type HostedEntry struct {
	Name string
	Key  di.Key
}

// NewRuntime 创建一个新的运行时实例
func NewRuntime() *Runtime {
	rt := &Runtime{
		Binder:          di.NewBinder(),
		Lifecycle:       NewLifecycle(),
		Config:          config.FromMap(nil),
		Logger:          logging.NewLogger(),
		Stage:           di.StageDevelopment,
		ShutdownTimeout: 5 * time.Second,
		shutdownCh:      make(chan struct{}),
	}
	rt.ErrorHandler = func(err error) {
		rt.Logger.Error("runtime error", logging.Err(err))
	}
	return rt
}

// Apply 依次应用 Option，遇到错误立即返回
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Install 登记 di 模块，Compile 时按登记顺序安装，此时配置已确定
func (rt *Runtime) Install(modules ...di.Module) {
	rt.modules = append(rt.modules, modules...)
}

// AddHostedService 登记托管服务，启动时按 key 从注入器解析
func (rt *Runtime) AddHostedService(name string, key di.Key) {
	rt.hosted = append(rt.hosted, HostedEntry{Name: name, Key: key})
}

// HostedServices 按登记顺序返回托管服务
func (rt *Runtime) HostedServices() []HostedEntry {
	return append([]HostedEntry(nil), rt.hosted...)
}

// Compile 绑定运行时自身、日志与配置后编译注入器，只能调用一次
func (rt *Runtime) Compile() (*di.Injector, error) {
	if rt.compiled {
		return nil, fmt.Errorf("core: runtime already compiled")
	}
	rt.compiled = true

	di.Bind[*Runtime](rt.Binder).ToInstance(rt)
	di.Bind[logging.Logger](rt.Binder).ToInstance(rt.Logger)
	rt.Binder.Install(config.Module(rt.Config))
	rt.Binder.Install(rt.modules...)

	return di.Compile(rt.Binder, rt.Stage, di.WithLogger(rt.Logger))
}

// Shutdown 请求应用退出，可重复调用
func (rt *Runtime) Shutdown() {
	rt.shutdown.Do(func() { close(rt.shutdownCh) })
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}
