package mongodb

import (
	"context"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/mgo"
)

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *MongoOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 MongoDB 能力：每个客户端以 `di:"name"` 注入，default 同时作为无限定名的 *mgo.Client
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := NewBuilder()
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
		rt.Lifecycle.OnStop(func(ctx context.Context, _ *di.Injector) error {
			return factory.Close(ctx)
		})
		return nil
	}
}

// Module 把工厂及其客户端绑定到注入器
func Module(factory *MongoFactory) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		di.Bind[*MongoFactory](b).ToInstance(factory)
		for _, name := range factory.Names() {
			di.BindNamed[*mgo.Client](b, name).
				ToProviderInstance(clientProvider{factory: factory, name: name}).
				In(di.Singleton)
			if name == DefaultName {
				di.Bind[*mgo.Client](b).To(di.NamedKeyOf[*mgo.Client](name))
			}
		}
	})
}

type clientProvider struct {
	factory *MongoFactory
	name    string
}

func (p clientProvider) Get() (any, error) {
	return p.factory.Get(p.name)
}
