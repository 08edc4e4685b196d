package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithMode 设置 Gin 模式
func WithMode(mode string) BuilderOption {
	return func(b *Builder) {
		b.SetMode(mode)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithMiddleware 添加由注入器解析的中间件
func WithMiddleware(middleware ...any) BuilderOption {
	return func(b *Builder) {
		b.AddMiddleware(middleware...)
	}
}

// Configure 以回调配置构建器
func Configure(fn func(*Builder)) BuilderOption {
	return fn
}

// New 启用 Web 能力。*Host 以单例绑定并作为托管服务运行，多次调用共享同一个主机
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder, created := core.FeatureOrCreate(rt, NewBuilder)
		for _, opt := range opts {
			opt(builder)
		}
		if !created {
			return nil
		}

		rt.Install(Module(builder))
		rt.AddHostedService("web", di.KeyOf[*Host]())
		return nil
	}
}

// Module 登记控制器与中间件绑定，并绑定 *Host
func Module(builder *Builder) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		if builder.port < 0 || builder.port > 65535 {
			b.AddError(fmt.Errorf("web: invalid port %d", builder.port))
		}
		middleware := bindComponents(b, "middleware", builder.middleware)
		controllers := bindComponents(b, "controller", builder.controllers)

		di.Bind[*Host](b).ToConstructor(func(inj *di.Injector, logger logging.Logger) *Host {
			gin.SetMode(builder.mode)
			return &Host{
				port:        builder.port,
				engine:      builder.engine,
				server:      &http.Server{Handler: builder.engine},
				logger:      logger.WithCategory("web"),
				inj:         inj,
				controllers: controllers,
				middleware:  middleware,
			}
		}).In(di.Singleton)
	})
}
