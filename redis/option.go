package redis

import (
	"context"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/redis/go-redis/v9"
)

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 Redis 能力：每个客户端以 `di:"name"` 注入，default 同时作为无限定名的 *redis.Client
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
		rt.Lifecycle.OnStop(func(context.Context, *di.Injector) error {
			return factory.Close()
		})
		return nil
	}
}

// Module 把工厂及其客户端绑定到注入器；客户端在首次注入时创建，之后复用
func Module(factory *ClientFactory) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		di.Bind[*ClientFactory](b).ToInstance(factory)
		for _, name := range factory.Names() {
			di.BindNamed[*redis.Client](b, name).
				ToProviderInstance(clientProvider{factory: factory, name: name}).
				In(di.Singleton)
			if name == DefaultName {
				di.Bind[*redis.Client](b).To(di.NamedKeyOf[*redis.Client](name))
			}
		}
	})
}

type clientProvider struct {
	factory *ClientFactory
	name    string
}

func (p clientProvider) Get() (any, error) {
	return p.factory.Get(p.name)
}
