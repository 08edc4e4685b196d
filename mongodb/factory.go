package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/multierr"
)

// MongoFactory MongoDB 客户端工厂，首次 Get 时才创建客户端
type MongoFactory struct {
	logger  logging.Logger
	mu      sync.Mutex
	options map[string]MongoOptions
	order   []string
	clients map[string]*mgo.Client
}

// NewMongoFactory 创建客户端工厂
func NewMongoFactory(logger logging.Logger) *MongoFactory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MongoFactory{
		logger:  logger.WithCategory("mongodb"),
		options: make(map[string]MongoOptions),
		clients: make(map[string]*mgo.Client),
	}
}

// Register 登记客户端配置
func (f *MongoFactory) Register(opts MongoOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.options[opts.Name]; exists {
		return fmt.Errorf("mongo client '%s' already registered", opts.Name)
	}
	f.options[opts.Name] = opts
	f.order = append(f.order, opts.Name)
	return nil
}

// Names 按登记顺序返回客户端名称
func (f *MongoFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Get 获取指定名称的客户端，不存在时按配置创建
func (f *MongoFactory) Get(name string) (*mgo.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[name]; ok {
		return client, nil
	}
	opts, ok := f.options[name]
	if !ok {
		return nil, fmt.Errorf("mongo client '%s' not found", name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	client, err := mgo.NewClient(ctx, opts.Uri, clientOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client '%s': %w", name, err)
	}

	f.clients[name] = client
	f.logger.Info("mongo client created", logging.String("name", name))
	return client, nil
}

func clientOptions(opts MongoOptions) *options.ClientOptions {
	clientOpts := options.Client()
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}
	return clientOpts
}

// Close 断开所有已创建的客户端
func (f *MongoFactory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	var errs error
	for name, client := range f.clients {
		if err := client.Disconnect(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close mongo client '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]*mgo.Client)
	return errs
}
