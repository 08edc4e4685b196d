package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// HostedService 托管服务接口
// 框架会在独立的 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑，必须支持通过 ctx 进行超时控制。
	Stop(ctx context.Context) error
}

// Manager 托管服务管理器
type Manager struct {
	services []named
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

type named struct {
	name    string
	service HostedService
}

// NewManager 创建托管服务管理器
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Manager{logger: logger.WithCategory("hosting")}
}

// Add 添加托管服务，name 仅用于日志
func (m *Manager) Add(name string, service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, named{name: name, service: service})
}

// Len 已添加的服务数量
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 并发启动所有托管服务，服务异常退出的错误写入返回的通道
func (m *Manager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))
	m.logger.Info("starting hosted services", logging.Int("count", len(m.services)))

	for _, s := range m.services {
		m.wg.Add(1)
		go func(s named) {
			defer m.wg.Done()

			m.logger.Debug("hosted service starting", logging.String("service", s.name))
			err := s.service.Start(ctx)
			switch {
			case err == nil:
				m.logger.Info("hosted service completed", logging.String("service", s.name))
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("hosted service stopped (context done)", logging.String("service", s.name))
			default:
				m.logger.Error("hosted service failed", logging.String("service", s.name), logging.Err(err))
				errCh <- fmt.Errorf("hosted service %s: %w", s.name, err)
			}
		}(s)
	}
	return errCh
}

// StopAll 并发停止所有托管服务，返回合并后的错误
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info("stopping hosted services", logging.Int("count", len(m.services)))

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	for i := len(m.services) - 1; i >= 0; i-- {
		s := m.services[i]
		g.Go(func() error {
			if err := s.service.Stop(ctx); err != nil {
				m.logger.Error("failed to stop hosted service", logging.String("service", s.name), logging.Err(err))
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("stop %s: %w", s.name, err))
				mu.Unlock()
				return nil
			}
			m.logger.Debug("hosted service stopped", logging.String("service", s.name))
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Wait 等待所有 Start 返回
func (m *Manager) Wait() {
	m.wg.Wait()
}

// BackgroundService 后台服务基类
type BackgroundService struct {
	name     string
	logger   logging.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.Done()
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// Stop 发出停止信号并等待完成
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("background service stop timeout", logging.String("service", s.name))
		return ctx.Err()
	}
}

// ShouldStop 是否已收到停止信号
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// TimedHostedService 定时托管服务
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 按间隔执行任务直到停止
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("timed task failed", logging.String("service", s.name), logging.Err(err))
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FuncService 把阻塞函数适配为托管服务，Stop 时取消其 context
type FuncService struct {
	fn     func(ctx context.Context) error
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewFuncService 创建函数式托管服务
func NewFuncService(fn func(ctx context.Context) error) *FuncService {
	return &FuncService{fn: fn}
}

func (f *FuncService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
	defer cancel()
	return f.fn(ctx)
}

func (f *FuncService) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}
