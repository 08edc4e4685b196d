package core

import (
	"fmt"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Option 定义了修改 Runtime 状态的函数签名
// 这是框架唯一的扩展点
type Option func(rt *Runtime) error

const (
	// StageKey 配置中注入器阶段的键
	StageKey = "inject.stage"
	// LoggingSection 日志设置所在的配置节，键见 logging.Setting*
	LoggingSection = "logging"
	// LogLevelKey 配置中日志级别的键
	LogLevelKey = LoggingSection + "." + logging.SettingLevel
	// LogFormatKey 配置中日志格式的键，text 或 json
	LogFormatKey = LoggingSection + "." + logging.SettingFormat
)

// WithModules 安装 di 模块
func WithModules(modules ...di.Module) Option {
	return func(rt *Runtime) error {
		rt.Install(modules...)
		return nil
	}
}

// WithStage 设置注入器编译阶段
func WithStage(stage di.Stage) Option {
	return func(rt *Runtime) error {
		rt.Stage = stage
		return nil
	}
}

// WithLogger 替换框架日志
func WithLogger(logger logging.Logger) Option {
	return func(rt *Runtime) error {
		if logger == nil {
			return fmt.Errorf("core: nil logger")
		}
		rt.Logger = logger
		return nil
	}
}

// WithShutdownTimeout 设置关闭超时
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(rt *Runtime) error {
		if timeout <= 0 {
			return fmt.Errorf("core: shutdown timeout must be positive, got %v", timeout)
		}
		rt.ShutdownTimeout = timeout
		return nil
	}
}

// WithConfiguration 设置应用配置；inject.stage 存在时覆盖阶段，
// logging.level 或 logging.format 存在时按 logging 配置节重建控制台 Logger
func WithConfiguration(cfg config.Configuration) Option {
	return func(rt *Runtime) error {
		if cfg == nil {
			return fmt.Errorf("core: nil configuration")
		}
		rt.Config = cfg

		if s := cfg.Get(StageKey); s != "" {
			stage, err := di.ParseStage(s)
			if err != nil {
				return fmt.Errorf("core: %s: %w", StageKey, err)
			}
			rt.Stage = stage
		}
		if cfg.Get(LogLevelKey) != "" || cfg.Get(LogFormatKey) != "" {
			lb := logging.NewLoggingBuilder()
			err := lb.Configure(func(key string) string {
				return cfg.Get(LoggingSection + "." + key)
			})
			if err != nil {
				return fmt.Errorf("core: %s: %w", LoggingSection, err)
			}
			rt.Logger = lb.AddConsole().Build().CreateLogger("inject")
		}
		return nil
	}
}

// WithConfigurationBuilder 使用构建器组装配置源后应用 WithConfiguration
//
//	core.WithConfigurationBuilder(func(b *config.ConfigurationBuilder) {
//		b.AddYamlFile("appsettings.yaml", true).AddEnvironmentVariables("APP_")
//	})
func WithConfigurationBuilder(configure func(b *config.ConfigurationBuilder)) Option {
	return func(rt *Runtime) error {
		b := config.NewConfigurationBuilder()
		if configure != nil {
			configure(b)
		}
		cfg, err := b.Build()
		if err != nil {
			return fmt.Errorf("core: failed to build configuration: %w", err)
		}
		return WithConfiguration(cfg)(rt)
	}
}

// WithSection 把配置节绑定为 T 与 config.Option[T]，读取编译时 Runtime 的配置
func WithSection[T any](section string) Option {
	return func(rt *Runtime) error {
		rt.Install(di.ModuleFunc(func(b *di.Binder) {
			config.BindSection[T](b, rt.Config, section)
		}))
		return nil
	}
}
