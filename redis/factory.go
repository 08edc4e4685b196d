package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/inject/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// ClientFactory 按名称创建并缓存 Redis 客户端，首次 Get 时才建立客户端
type ClientFactory struct {
	logger  logging.Logger
	mu      sync.Mutex
	options map[string]ClientOptions
	order   []string
	clients map[string]*redis.Client
}

// NewClientFactory 创建客户端工厂
func NewClientFactory(logger logging.Logger) *ClientFactory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ClientFactory{
		logger:  logger.WithCategory("redis"),
		options: make(map[string]ClientOptions),
		clients: make(map[string]*redis.Client),
	}
}

// Register 登记客户端配置
func (f *ClientFactory) Register(opts ClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.options[opts.Name]; exists {
		return fmt.Errorf("redis client '%s' already registered", opts.Name)
	}
	f.options[opts.Name] = opts
	f.order = append(f.order, opts.Name)
	return nil
}

// Names 按登记顺序返回客户端名称
func (f *ClientFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Get 获取指定名称的客户端，不存在时按配置创建
func (f *ClientFactory) Get(name string) (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[name]; ok {
		return client, nil
	}
	opts, ok := f.options[name]
	if !ok {
		return nil, fmt.Errorf("redis client '%s' not found", name)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})

	if opts.PingOnCreate {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis '%s': %w", name, err)
		}
	}

	f.clients[name] = client
	f.logger.Info("redis client created",
		logging.String("name", name),
		logging.String("addr", opts.Addr),
		logging.Int("db", opts.DB))
	return client, nil
}

// Close 关闭所有已创建的客户端
func (f *ClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close redis client '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]*redis.Client)
	return errs
}
