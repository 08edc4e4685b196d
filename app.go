package inject

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
	"go.uber.org/multierr"
)

// App 编译完成的应用：注入器、生命周期与托管服务
type App struct {
	rt       *core.Runtime
	injector *di.Injector
	hosts    *hosting.Manager

	mu      sync.Mutex
	cancel  context.CancelFunc
	watched chan struct{}
	failure error
}

// Build 应用所有选项并编译注入器，配置错误一次性返回
func Build(opts ...core.Option) (*App, error) {
	rt := core.NewRuntime()
	if err := rt.Apply(opts...); err != nil {
		return nil, err
	}
	inj, err := rt.Compile()
	if err != nil {
		return nil, err
	}
	return &App{
		rt:       rt,
		injector: inj,
		hosts:    hosting.NewManager(rt.Logger),
	}, nil
}

// Injector 返回应用的注入器
func (a *App) Injector() *di.Injector { return a.injector }

// Runtime 返回构建应用的运行时
func (a *App) Runtime() *core.Runtime { return a.rt }

// Done 在应用请求退出时关闭
func (a *App) Done() <-chan struct{} { return a.rt.Done() }

// Err 返回导致退出的托管服务错误
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failure
}

// Start 执行启动钩子，解析并启动托管服务。托管服务运行在独立的 context 中，直到 Stop。
func (a *App) Start(ctx context.Context) error {
	if err := a.rt.Lifecycle.Start(ctx, a.injector); err != nil {
		return fmt.Errorf("inject: start hook failed: %w", err)
	}

	for _, h := range a.rt.HostedServices() {
		v, err := a.injector.Resolve(h.Key)
		if err != nil {
			return fmt.Errorf("inject: failed to resolve hosted service %s: %w", h.Name, err)
		}
		svc, ok := v.(hosting.HostedService)
		if !ok {
			return fmt.Errorf("inject: %s resolved to %T which is not a hosting.HostedService", h.Name, v)
		}
		a.hosts.Add(h.Name, svc)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.watched = make(chan struct{})
	a.mu.Unlock()

	errCh := a.hosts.StartAll(runCtx)
	go a.watch(runCtx, errCh)
	return nil
}

// watch 托管服务异常退出时记录错误并请求关闭
func (a *App) watch(ctx context.Context, errCh <-chan error) {
	defer close(a.watched)
	for {
		select {
		case err := <-errCh:
			a.mu.Lock()
			if a.failure == nil {
				a.failure = err
			}
			a.mu.Unlock()
			if a.rt.ErrorHandler != nil {
				a.rt.ErrorHandler(err)
			}
			a.rt.Shutdown()
		case <-ctx.Done():
			return
		}
	}
}

// Stop 停止托管服务，再倒序执行停止钩子
func (a *App) Stop(ctx context.Context) error {
	errs := a.hosts.StopAll(ctx)

	a.mu.Lock()
	cancel, watched := a.cancel, a.watched
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-watched
	}

	waited := make(chan struct{})
	go func() {
		a.hosts.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		errs = multierr.Append(errs, fmt.Errorf("inject: hosted services did not exit: %w", ctx.Err()))
	}

	return multierr.Append(errs, a.rt.Lifecycle.Stop(ctx, a.injector))
}
