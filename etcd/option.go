package etcd

import (
	"context"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*Builder)

// WithClient 添加 Etcd 客户端配置
func WithClient(name string, opts ...func(*EtcdClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *EtcdClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// New 启用 Etcd 能力：每个客户端以 `di:"name"` 注入，default 同时作为无限定名的 *clientv3.Client
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

// Module 把工厂及其客户端绑定到注入器
func Module(factory *EtcdClientFactory) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		di.Bind[*EtcdClientFactory](b).ToInstance(factory)
		for _, name := range factory.Names() {
			di.BindNamed[*clientv3.Client](b, name).
				ToProviderInstance(clientProvider{factory: factory, name: name}).
				In(di.Singleton)
			if name == DefaultName {
				di.Bind[*clientv3.Client](b).To(di.NamedKeyOf[*clientv3.Client](name))
			}
		}
	})
}

type clientProvider struct {
	factory *EtcdClientFactory
	name    string
}

func (p clientProvider) Get() (any, error) {
	return p.factory.Get(p.name)
}
