package database

import (
	"fmt"
	"sync"

	"github.com/gocrud/inject/logging"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Factory 按名称打开并缓存 *gorm.DB
type Factory struct {
	logger  logging.Logger
	mu      sync.Mutex
	options map[string]Options
	order   []string
	dbs     map[string]*gorm.DB
}

// NewFactory 创建数据库工厂
func NewFactory(logger logging.Logger) *Factory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Factory{
		logger:  logger.WithCategory("database"),
		options: make(map[string]Options),
		dbs:     make(map[string]*gorm.DB),
	}
}

// Register 登记数据库配置
func (f *Factory) Register(opts Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.options[opts.Name]; exists {
		return fmt.Errorf("database '%s' already registered", opts.Name)
	}
	f.options[opts.Name] = opts
	f.order = append(f.order, opts.Name)
	return nil
}

// Names 按登记顺序返回数据库名称
func (f *Factory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Options 返回指定名称的配置
func (f *Factory) Options(name string) (Options, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts, ok := f.options[name]
	return opts, ok
}

// Get 获取数据库实例，首次调用时连接、设置连接池并执行迁移
func (f *Factory) Get(name string) (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if db, ok := f.dbs[name]; ok {
		return db, nil
	}
	opts, ok := f.options[name]
	if !ok {
		return nil, fmt.Errorf("database '%s' not found", name)
	}

	db, err := gorm.Open(opts.Dialector, opts.GormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB for '%s': %w", name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database '%s': %w", name, err)
		}
	}

	f.dbs[name] = db
	f.logger.Info("database opened",
		logging.String("name", name),
		logging.String("dialector", opts.Dialector.Name()),
		logging.Int("models", len(opts.AutoMigrate)))
	return db, nil
}

// Close 关闭所有已打开的连接
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for name, db := range f.dbs {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close database '%s': %w", name, err))
		}
	}
	f.dbs = make(map[string]*gorm.DB)
	return errs
}
