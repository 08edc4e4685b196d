package cron

import (
	"fmt"
	"reflect"
	"time"

	"github.com/robfig/cron/v3"
)

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any // func() 或参数由注入器提供的任意函数
}

// Builder Cron 配置构建器，同一运行时内的多次 New 共享一个 Builder
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{location: "UTC"}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加任务。handler 可以是 func()，也可以是参数由注入器提供的函数，
// 最后一个返回值为 error 时会被记录
//
//	builder.AddJob("0 */5 * * * *", "sync-data", func(svc *DataService) error {
//	    return svc.Sync()
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

func (b *Builder) parser() cron.Parser {
	fields := cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
	if b.enableSeconds {
		fields |= cron.Second
	}
	return cron.NewParser(fields)
}

// validate 检查时区、表达式与任务函数，返回全部问题
func (b *Builder) validate() []error {
	var errs []error
	if _, err := time.LoadLocation(b.location); err != nil {
		errs = append(errs, fmt.Errorf("cron: invalid location %q: %w", b.location, err))
	}

	parser := b.parser()
	names := make(map[string]bool, len(b.jobs))
	for _, job := range b.jobs {
		if job.name == "" {
			errs = append(errs, fmt.Errorf("cron: job with spec %q has no name", job.spec))
		} else if names[job.name] {
			errs = append(errs, fmt.Errorf("cron: job '%s' already added", job.name))
		}
		names[job.name] = true

		if _, err := parser.Parse(job.spec); err != nil {
			errs = append(errs, fmt.Errorf("cron: invalid spec %q for job '%s': %w", job.spec, job.name, err))
		}
		if t := reflect.TypeOf(job.handler); t == nil || t.Kind() != reflect.Func {
			errs = append(errs, fmt.Errorf("cron: job '%s' handler must be a function, got %T", job.name, job.handler))
		}
	}
	return errs
}
