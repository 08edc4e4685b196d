package cron

import (
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加任务
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, handler)
	}
}

// New 启用 Cron 能力。*Service 以单例绑定并作为托管服务运行，多次调用共享同一个服务
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
		rt.AddHostedService("cron", di.KeyOf[*Service]())
		return nil
	}
}

// Module 校验构建器并绑定 *Service
func Module(builder *Builder) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		for _, err := range builder.validate() {
			b.AddError(err)
		}
		di.Bind[*Service](b).ToConstructor(func(inj *di.Injector, logger logging.Logger) (*Service, error) {
			return newService(builder, inj, logger)
		}).In(di.Singleton)
	})
}
