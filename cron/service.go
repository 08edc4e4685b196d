package cron

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/robfig/cron/v3"
)

// Service Cron 定时任务托管服务
type Service struct {
	cron    *cron.Cron
	inj     *di.Injector
	logger  logging.Logger
	mu      sync.Mutex
	jobs    map[string]cron.EntryID // 任务名称到任务ID的映射
	pending []jobDefinition

	ready    chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newService 按构建器配置创建服务，任务在 Start 时注册
func newService(b *Builder, inj *di.Injector, logger logging.Logger) (*Service, error) {
	logger = logger.WithCategory("cron")

	loc, err := time.LoadLocation(b.location)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid location %q: %w", b.location, err)
	}

	cronOpts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithParser(b.parser()),
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}
	if b.enableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}

	return &Service{
		cron:    cron.New(cronOpts...),
		inj:     inj,
		logger:  logger,
		jobs:    make(map[string]cron.EntryID),
		pending: append([]jobDefinition(nil), b.jobs...),
		ready:   make(chan struct{}),
		stopCh:  make(chan struct{}),
	}, nil
}

// AddJob 添加定时任务，启动前后都可调用
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟，需启用秒级精度)
func (s *Service) AddJob(spec, name string, handler any) error {
	job, err := s.wrap(name, handler)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: job '%s' already added", name)
	}
	entryID, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("cron: failed to add job '%s': %w", name, err)
	}
	s.jobs[name] = entryID
	s.logger.Info("cron job registered", logging.String("job", name), logging.String("spec", spec))
	return nil
}

// RemoveJob 移除定时任务
func (s *Service) RemoveJob(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.jobs, name)
	s.logger.Info("cron job removed", logging.String("job", name))
	return true
}

// Jobs 返回已注册的任务名称
func (s *Service) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next 返回任务下一次执行时间
func (s *Service) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	entryID, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

// wrap 把任务函数包装为 cron 调用，非 func() 的参数在每次执行时从注入器解析
func (s *Service) wrap(name string, handler any) (func(), error) {
	logger := s.logger.WithFields(logging.String("job", name))
	var run func() error
	switch h := handler.(type) {
	case func():
		run = func() error { h(); return nil }
	case func() error:
		run = h
	default:
		if t := reflect.TypeOf(h); t == nil || t.Kind() != reflect.Func {
			return nil, fmt.Errorf("cron: job '%s' handler must be a function, got %T", name, h)
		}
		run = func() error {
			_, err := s.inj.Call(h)
			return err
		}
	}

	return func() {
		start := time.Now()
		logger.Debug("cron job started")
		if err := run(); err != nil {
			logger.Error("cron job failed", logging.Err(err))
			return
		}
		logger.Debug("cron job completed", logging.Duration("elapsed", time.Since(start)))
	}, nil
}

// Ready 调度开始后关闭
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start 注册构建时登记的任务并启动调度，阻塞到 ctx 结束或 Stop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, job := range pending {
		if err := s.AddJob(job.spec, job.name, job.handler); err != nil {
			return err
		}
	}

	s.cron.Start()
	close(s.ready)
	s.logger.Info("cron service started", logging.Int("jobs", len(pending)))

	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
	return nil
}

// Stop 停止调度并等待正在执行的任务结束或 ctx 超时
func (s *Service) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("cron service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将框架日志适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Err(err))
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
