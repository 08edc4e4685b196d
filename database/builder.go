package database

import (
	"fmt"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/logging"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// DefaultName 默认数据库名称，同时以无限定名的 *gorm.DB 绑定
const DefaultName = "default"

// Options 数据库配置选项
type Options struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	AutoMigrate  []any // 需要自动迁移的模型
	// Lazy 为 true 时首次注入才连接，默认在注入器创建时连接并迁移
	Lazy bool
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *Options {
	return &Options{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database dialector is required")
	}
	return nil
}

// Builder 数据库配置构建器
type Builder struct {
	cfg     config.Configuration
	configs []Options
	names   map[string]bool
	errs    error
}

// NewBuilder 创建构建器
func NewBuilder(cfg config.Configuration) *Builder {
	if cfg == nil {
		cfg = config.FromMap(nil)
	}
	return &Builder{cfg: cfg, names: make(map[string]bool)}
}

// Configuration 应用配置，可用 config.Load 读取连接参数
func (b *Builder) Configuration() config.Configuration {
	return b.cfg
}

// AddError 记录配置错误，Build 时一并返回
func (b *Builder) AddError(err error) {
	b.errs = multierr.Append(b.errs, err)
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	if b.names[name] {
		b.errs = multierr.Append(b.errs, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.names[name] = true
	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建数据库工厂；没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*Factory, error) {
	if b.errs != nil {
		return nil, fmt.Errorf("database configuration errors: %w", b.errs)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewFactory(logger)
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
	}
	return factory, nil
}
