package inject

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocrud/inject/core"
	"go.uber.org/multierr"
)

// Run 启动应用程序并阻塞到收到退出信号
func Run(opts ...core.Option) error {
	return RunContext(context.Background(), opts...)
}

// RunContext 与 Run 相同，ctx 取消时也会退出
func RunContext(ctx context.Context, opts ...core.Option) error {
	// 1. 应用选项并编译注入器
	app, err := Build(opts...)
	if err != nil {
		return err
	}

	// 2. 启动生命周期与托管服务
	if err := app.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.rt.ShutdownTimeout)
		defer cancel()
		return multierr.Append(err, app.Stop(shutdownCtx))
	}

	// 3. 阻塞并监听退出信号
	// 支持 OS 信号、ctx 取消和 Runtime 内部触发的退出 (rt.Shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case <-app.Done():
	}

	// 4. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.rt.ShutdownTimeout)
	defer cancel()

	return multierr.Append(app.Err(), app.Stop(shutdownCtx))
}
