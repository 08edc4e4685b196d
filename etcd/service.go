package etcd

import (
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/multierr"
)

// DefaultName 默认客户端名称，同时以无限定名的 *clientv3.Client 绑定
const DefaultName = "default"

// EtcdClientOptions etcd 客户端配置选项
type EtcdClientOptions struct {
	Name               string        // 客户端名称
	Endpoints          []string      // etcd 服务器地址列表
	DialTimeout        time.Duration // 连接超时时间
	Username           string        // 用户名（可选）
	Password           string        // 密码（可选）
	AutoSyncInterval   time.Duration // 自动同步间隔（可选）
	MaxCallSendMsgSize int           // 最大发送消息大小（可选）
	MaxCallRecvMsgSize int           // 最大接收消息大小（可选）
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("etcd client name is required")
	}
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	return nil
}

// clientConfig 把选项转换为 clientv3.Config
func (o *EtcdClientOptions) clientConfig() clientv3.Config {
	cfg := clientv3.Config{
		Endpoints:   o.Endpoints,
		DialTimeout: o.DialTimeout,
	}
	if o.Username != "" {
		cfg.Username = o.Username
		cfg.Password = o.Password
	}
	if o.AutoSyncInterval > 0 {
		cfg.AutoSyncInterval = o.AutoSyncInterval
	}
	if o.MaxCallSendMsgSize > 0 {
		cfg.MaxCallSendMsgSize = o.MaxCallSendMsgSize
	}
	if o.MaxCallRecvMsgSize > 0 {
		cfg.MaxCallRecvMsgSize = o.MaxCallRecvMsgSize
	}
	return cfg
}

// EtcdClientFactory etcd 客户端工厂，首次 Get 时才创建客户端
type EtcdClientFactory struct {
	logger  logging.Logger
	mu      sync.Mutex
	options map[string]EtcdClientOptions
	order   []string
	clients map[string]*clientv3.Client
}

// NewEtcdClientFactory 创建客户端工厂
func NewEtcdClientFactory(logger logging.Logger) *EtcdClientFactory {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EtcdClientFactory{
		logger:  logger.WithCategory("etcd"),
		options: make(map[string]EtcdClientOptions),
		clients: make(map[string]*clientv3.Client),
	}
}

// Register 登记 etcd 客户端配置
func (f *EtcdClientFactory) Register(opts EtcdClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.options[opts.Name]; exists {
		return fmt.Errorf("etcd client '%s' already registered", opts.Name)
	}
	f.options[opts.Name] = opts
	f.order = append(f.order, opts.Name)
	return nil
}

// Names 按登记顺序返回客户端名称
func (f *EtcdClientFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Get 获取指定名称的客户端。clientv3.New 不阻塞等待连接
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[name]; ok {
		return client, nil
	}
	opts, ok := f.options[name]
	if !ok {
		return nil, fmt.Errorf("etcd client '%s' not found", name)
	}

	client, err := clientv3.New(opts.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client '%s': %w", name, err)
	}

	f.clients[name] = client
	f.logger.Info("etcd client created",
		logging.String("name", name),
		logging.Any("endpoints", opts.Endpoints))
	return client, nil
}

// Close 关闭所有已创建的客户端
func (f *EtcdClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close etcd client '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]*clientv3.Client)
	return errs
}
