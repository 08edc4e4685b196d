package database

import (
	"context"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"gorm.io/gorm"
)

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// Configure 以构建器回调配置数据库，回调内可读取应用配置
func Configure(fn func(*Builder)) BuilderOption {
	return fn
}

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*Options)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *Options) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用数据库能力：每个实例以 `di:"name"` 注入，default 同时作为无限定名的 *gorm.DB
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder(rt.Config)
		for _, opt := range opts {
			opt(builder)
		}

		factory, err := builder.Build(rt.Logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		rt.Install(Module(factory))
		rt.Lifecycle.OnStop(func(context.Context, *di.Injector) error {
			return factory.Close()
		})
		return nil
	}
}

// Module 把工厂及其实例绑定到注入器。非 Lazy 的实例是急切单例，连接或迁移失败会使注入器创建失败。
func Module(factory *Factory) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		di.Bind[*Factory](b).ToInstance(factory)
		for _, name := range factory.Names() {
			bb := di.BindNamed[*gorm.DB](b, name).ToProviderInstance(dbProvider{factory: factory, name: name})
			if opts, _ := factory.Options(name); opts.Lazy {
				bb.In(di.Singleton)
			} else {
				bb.AsEagerSingleton()
			}
			if name == DefaultName {
				di.Bind[*gorm.DB](b).To(di.NamedKeyOf[*gorm.DB](name))
			}
		}
	})
}

type dbProvider struct {
	factory *Factory
	name    string
}

func (p dbProvider) Get() (any, error) {
	return p.factory.Get(p.name)
}
