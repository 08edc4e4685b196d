package config

import (
	"fmt"

	"github.com/gocrud/inject/di"
)

// Load 加载并绑定指定节的配置到结构体 T，section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

// Option 静态配置选项（应用生命周期内不变）
type Option[T any] interface {
	Value() T
}

type option[T any] struct {
	value T
}

func (o *option[T]) Value() T { return o.value }

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

// Module 把 Configuration 实例绑定到注入器
func Module(cfg Configuration) di.Module {
	return di.ModuleFunc(func(b *di.Binder) {
		if cfg == nil {
			b.AddError(fmt.Errorf("config: nil configuration"))
			return
		}
		di.Bind[Configuration](b).ToInstance(cfg)
	})
}

// BindSection 把配置节绑定为 T 与 Option[T]，首次解析时读取并缓存
func BindSection[T any](b *di.Binder, cfg Configuration, section string) {
	di.Bind[T](b).ToProviderInstance(&sectionProvider[T]{cfg: cfg, section: section}).In(di.Singleton)
	di.Bind[Option[T]](b).ToConstructor(NewOption[T]).In(di.Singleton)
}

type sectionProvider[T any] struct {
	cfg     Configuration
	section string
}

func (p *sectionProvider[T]) Get() (any, error) {
	v, err := Load[T](p.cfg, p.section)
	if err != nil {
		return nil, fmt.Errorf("config: failed to bind section '%s': %w", p.section, err)
	}
	return v, nil
}
