package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// 键值设置中的键，通常来自配置节 logging
const (
	SettingLevel           = "level"
	SettingFormat          = "format"
	SettingColor           = "color"
	SettingTimestampFormat = "timestamp_format"
)

// LoggingBuilder 日志构建器。AddConsole 不带参数时使用构建器上的控制台设置，
// 这些设置可以由 Configure 从配置读取。
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	console      ConsoleLoggerOptions
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		minimumLevel: LogLevelInfo,
		console: ConsoleLoggerOptions{
			IncludeTimestamp: true,
			TimestampFormat:  "2006-01-02 15:04:05",
			ColorOutput:      true,
			Output:           os.Stdout,
		},
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// SetOutput 设置默认控制台输出
func (b *LoggingBuilder) SetOutput(w io.Writer) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.console.Output = w
	return b
}

// Configure 按键读取设置：level 见 ParseLevel，format 为 text 或 json，
// color 为布尔值，timestamp_format 为 Go 时间布局。空值保持原设置，非法值一并返回。
func (b *LoggingBuilder) Configure(get func(key string) string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	if s := get(SettingLevel); s != "" {
		level, err := ParseLevel(s)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", SettingLevel, err))
		} else {
			b.minimumLevel = level
		}
	}
	switch s := strings.ToLower(strings.TrimSpace(get(SettingFormat))); s {
	case "", "text":
	case "json":
		b.console.Json = true
		b.console.ColorOutput = false
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s: unknown log format %q", SettingFormat, s))
	}
	if s := get(SettingColor); s != "" {
		color, err := strconv.ParseBool(s)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", SettingColor, err))
		} else {
			b.console.ColorOutput = color && !b.console.Json
		}
	}
	if s := get(SettingTimestampFormat); s != "" {
		b.console.TimestampFormat = s
	}
	return errs
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志，未给出选项时使用构建器上的控制台设置
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	b.mu.RLock()
	opts := b.console
	b.mu.RUnlock()
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// Build 构建日志工厂，最小级别同步到所有提供者
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory := &loggerFactory{minimumLevel: b.minimumLevel}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}
