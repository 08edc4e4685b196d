package core

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
)

// WithHostedService 登记托管服务 T，启动时从注入器解析。
// T 为结构体指针时可直接使用即时绑定；接口需另行绑定实现。
func WithHostedService[T hosting.HostedService]() Option {
	return func(rt *Runtime) error {
		key := di.KeyOf[T]()
		rt.AddHostedService(key.Type().String(), key)
		return nil
	}
}

// WorkerFunc 定义简单的后台任务函数
// 这是一个阻塞函数，通过 ctx.Done() 判断退出。
type WorkerFunc func(ctx context.Context) error

// WithWorker 将一个阻塞的函数注册为后台服务
func WithWorker(name string, fn WorkerFunc) Option {
	return func(rt *Runtime) error {
		if fn == nil {
			return fmt.Errorf("core: worker %q has no function", name)
		}
		key := di.NamedKeyOf[hosting.HostedService]("worker:" + name)
		rt.Install(di.ModuleFunc(func(b *di.Binder) {
			b.Bind(key).ToInstance(hosting.NewFuncService(fn))
		}))
		rt.AddHostedService(name, key)
		return nil
	}
}

// WithTimedTask 按固定间隔执行 task；task 是任意函数，参数由注入器提供，
// 返回的 error 会被记录但不中断调度
//
//	core.WithTimedTask("cleanup", time.Minute, func(repo *Repository) error {
//		return repo.Cleanup()
//	})
func WithTimedTask(name string, interval time.Duration, task any) Option {
	return func(rt *Runtime) error {
		if interval <= 0 {
			return fmt.Errorf("core: timed task %q needs a positive interval", name)
		}
		if t := reflect.TypeOf(task); t == nil || t.Kind() != reflect.Func {
			return fmt.Errorf("core: timed task %q must be a function, got %T", name, task)
		}

		key := di.NamedKeyOf[hosting.HostedService]("timer:" + name)
		rt.Install(di.ModuleFunc(func(b *di.Binder) {
			b.Bind(key).ToConstructor(func(inj *di.Injector, logger logging.Logger) hosting.HostedService {
				run := func(context.Context) error {
					_, err := inj.Call(task)
					return err
				}
				return hosting.NewTimedHostedService(name, interval, run, logger)
			}).In(di.Singleton)
		}))
		rt.AddHostedService(name, key)
		return nil
	}
}
