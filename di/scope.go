package di

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Producer 产生某个 Key 的实例
type Producer interface {
	Produce(rc *ResolveContext) (any, error)
}

// ProducerFunc 函数形式的 Producer
type ProducerFunc func(rc *ResolveContext) (any, error)

func (f ProducerFunc) Produce(rc *ResolveContext) (any, error) { return f(rc) }

// Scope 把未限定作用域的 Producer 转换为带生命周期策略的 Producer。
// 每个绑定在编译时调用一次 Scope；实现不能假设自己独占某个 Key。
type Scope interface {
	Scope(key Key, unscoped Producer) Producer
	String() string
}

var (
	// Unscoped 每次解析都重新创建
	Unscoped Scope = unscopedScope{}
	// Singleton 每个注入器内每个 Key 只创建一次
	Singleton Scope = singletonScope{}
)

type unscopedScope struct{}

func (unscopedScope) Scope(_ Key, unscoped Producer) Producer { return unscoped }
func (unscopedScope) String() string                          { return "Unscoped" }

type singletonScope struct{}

func (singletonScope) Scope(key Key, unscoped Producer) Producer {
	return &singletonProducer{key: key, unscoped: unscoped}
}

func (singletonScope) String() string { return "Singleton" }

type singletonSlot struct {
	value any
}

// singletonProducer 快路径无锁读取；首次创建由某个解析上下文独占，
// 其他上下文只等待同一个 Key，不同单例互不阻塞。
type singletonProducer struct {
	key      Key
	unscoped Producer
	slot     atomic.Pointer[singletonSlot]

	// 由 creationLocks.mu 保护
	owner *ResolveContext
	done  chan struct{}
}

func (p *singletonProducer) Produce(rc *ResolveContext) (any, error) {
	if s := p.slot.Load(); s != nil {
		return s.value, nil
	}
	if e, ok := rc.pending[p]; ok {
		return e.value, nil
	}

	owned, err := rc.inj.locks.acquire(rc, p)
	if err != nil {
		return nil, err
	}
	if !owned {
		if s := p.slot.Load(); s != nil {
			return s.value, nil
		}
		// 同一上下文重入，不缓存
		return p.unscoped.Produce(rc)
	}

	v, err := p.unscoped.Produce(rc)
	if err != nil {
		// 失败不缓存，下次解析重试
		rc.inj.locks.release(p, nil, false)
		return nil, err
	}
	if rc.tainted() {
		// 引用了外层尚未完成的实例，该实例完成后才发布
		rc.postpone(p, v)
		return v, nil
	}
	rc.inj.locks.release(p, v, true)
	return v, nil
}

// creationLocks 记录单例的创建者与等待关系，用于发现跨上下文的循环等待
type creationLocks struct {
	mu      sync.Mutex
	waiting map[*ResolveContext]*singletonProducer
}

// acquire 取得 p 的创建权。返回 false 表示已由其他上下文创建完成，或 rc 本身正在创建 p。
func (l *creationLocks) acquire(rc *ResolveContext, p *singletonProducer) (bool, error) {
	for {
		l.mu.Lock()
		if p.slot.Load() != nil || p.owner == rc {
			l.mu.Unlock()
			return false, nil
		}
		if p.owner == nil {
			p.owner, p.done = rc, make(chan struct{})
			l.mu.Unlock()
			return true, nil
		}
		if l.reaches(p.owner, rc) {
			l.mu.Unlock()
			return false, &ResolutionError{
				Key:   p.key,
				Chain: rc.Chain(),
				Cause: fmt.Errorf("%w: %v is being created by a concurrent resolution that waits on this one", ErrCircularDependency, p.key),
			}
		}
		if l.waiting == nil {
			l.waiting = make(map[*ResolveContext]*singletonProducer)
		}
		l.waiting[rc] = p
		done := p.done
		l.mu.Unlock()

		<-done

		l.mu.Lock()
		delete(l.waiting, rc)
		l.mu.Unlock()
	}
}

// reaches 沿"等待的单例的创建者"前进，判断 from 是否间接等待 to
func (l *creationLocks) reaches(from, to *ResolveContext) bool {
	for n := 0; from != nil && n <= len(l.waiting); n++ {
		if from == to {
			return true
		}
		p, ok := l.waiting[from]
		if !ok {
			return false
		}
		from = p.owner
	}
	return false
}

// release 放弃创建权并唤醒等待者；publish 为 true 时先写入实例
func (l *creationLocks) release(p *singletonProducer, v any, publish bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if publish {
		p.slot.Store(&singletonSlot{value: v})
	}
	p.owner = nil
	close(p.done)
	p.done = nil
}
