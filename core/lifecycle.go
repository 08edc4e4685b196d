package core

import (
	"context"

	"github.com/gocrud/inject/di"
	"go.uber.org/multierr"
)

// Hook 生命周期钩子，可从注入器解析依赖
type Hook func(ctx context.Context, inj *di.Injector) error

// LifecycleEvents 管理应用程序的生命周期
type LifecycleEvents struct {
	onStart []Hook
	onStop  []Hook
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{}
}

// OnStart 注册启动钩子
func (l *LifecycleEvents) OnStart(fn Hook) {
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子
func (l *LifecycleEvents) OnStop(fn Hook) {
	l.onStop = append(l.onStop, fn)
}

// Start 按注册顺序执行启动钩子，遇到错误立即返回
func (l *LifecycleEvents) Start(ctx context.Context, inj *di.Injector) error {
	for _, fn := range l.onStart {
		if err := fn(ctx, inj); err != nil {
			return err
		}
	}
	return nil
}

// Stop 倒序执行停止钩子；单个钩子失败不影响其余钩子，错误合并返回
func (l *LifecycleEvents) Stop(ctx context.Context, inj *di.Injector) error {
	var errs error
	for i := len(l.onStop) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, l.onStop[i](ctx, inj))
	}
	return errs
}
