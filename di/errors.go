package di

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBinding 没有可用的绑定，且无法即时创建
	ErrNoBinding = errors.New("di: no binding")
	// ErrCircularDependency 循环依赖无法通过部分构造的实例打破
	ErrCircularDependency = errors.New("di: circular dependency")
	// ErrNullProvision 非可空的注入点得到了 nil
	ErrNullProvision = errors.New("di: null provided for non-nullable dependency")
)

// Message 是一条配置错误，携带声明位置
type Message struct {
	Source string
	Text   string
	Cause  error
}

func (m Message) Error() string {
	var sb strings.Builder
	sb.WriteString(m.Text)
	if m.Source != "" {
		sb.WriteString(" (at ")
		sb.WriteString(m.Source)
		sb.WriteString(")")
	}
	if m.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(m.Cause.Error())
	}
	return sb.String()
}

func (m Message) Unwrap() error { return m.Cause }

// CreationError 汇总编译期间收集到的全部错误
type CreationError struct {
	Messages []Message
}

func (e *CreationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "di: unable to create injector, %d error(s):", len(e.Messages))
	for i, m := range e.Messages {
		fmt.Fprintf(&sb, "\n  %d) %s", i+1, m.Error())
	}
	return sb.String()
}

func (e *CreationError) Unwrap() []error {
	errs := make([]error, len(e.Messages))
	for i, m := range e.Messages {
		errs[i] = m
	}
	return errs
}

// ResolutionError 查找绑定失败或遇到无法打破的循环
type ResolutionError struct {
	Key   Key
	Chain []Key
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("di: failed to resolve %v: %v%s", e.Key, e.Cause, formatChain(e.Chain))
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// ProvisionError 用户代码（构造函数、Provider、注入方法）失败
type ProvisionError struct {
	Key    Key
	Point  *InjectionPoint
	Source string
	Chain  []Key
	Cause  error
}

func (e *ProvisionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "di: error providing %v", e.Key)
	if e.Point != nil {
		fmt.Fprintf(&sb, " at %v", e.Point)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, " (bound at %s)", e.Source)
	}
	fmt.Fprintf(&sb, ": %v%s", e.Cause, formatChain(e.Chain))
	return sb.String()
}

func (e *ProvisionError) Unwrap() error { return e.Cause }

func formatChain(chain []Key) string {
	if len(chain) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		sb.WriteString("\n  while locating ")
		sb.WriteString(chain[i].String())
	}
	return sb.String()
}

func formatPath(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}
