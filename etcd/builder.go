package etcd

import (
	"fmt"

	"github.com/gocrud/inject/logging"
	"go.uber.org/multierr"
)

// Builder etcd 配置构建器
type Builder struct {
	configs []EtcdClientOptions
	names   map[string]bool
	errs    error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]bool)}
}

// AddClient 添加客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	if b.names[name] {
		b.errs = multierr.Append(b.errs, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.names[name] = true
	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建客户端工厂；没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if b.errs != nil {
		return nil, fmt.Errorf("etcd configuration errors: %w", b.errs)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewEtcdClientFactory(logger)
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
	}
	return factory, nil
}
