package di

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonConcurrentFirstResolution(t *testing.T) {
	var calls int32
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).ToConstructor(func() *Dagny {
			atomic.AddInt32(&calls, 1)
			time.Sleep(10 * time.Millisecond)
			return &Dagny{Name: "only"}
		}).In(Singleton)
	})

	const n = 50
	results := make([]*Dagny, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := Get[*Dagny](inj)
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, d := range results {
		assert.Same(t, results[0], d)
	}
}

func TestSingletonGraphUnderConcurrency(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Chicken](b).In(Singleton)
		Bind[*Egg](b).In(Singleton)
	})

	var wg sync.WaitGroup
	chickens := make([]*Chicken, 20)
	eggs := make([]*Egg, 20)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			chickens[i], _ = Get[*Chicken](inj)
		}(i)
		go func(i int) {
			defer wg.Done()
			eggs[i], _ = Get[*Egg](inj)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.Same(t, chickens[0], chickens[i])
		assert.Same(t, eggs[0], eggs[i])
	}
	assert.Same(t, eggs[0], chickens[0].Egg)
}

func TestSingletonFailureIsNotCached(t *testing.T) {
	var calls int32
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).ToConstructor(func() (*Dagny, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("transient")
			}
			return &Dagny{Name: "second try"}, nil
		}).In(Singleton)
	})

	_, err := Get[*Dagny](inj)
	require.Error(t, err)

	d1, err := Get[*Dagny](inj)
	require.NoError(t, err)
	d2, err := Get[*Dagny](inj)
	require.NoError(t, err)

	assert.Same(t, d1, d2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSingletonMayHoldNil(t *testing.T) {
	var calls int32
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[Greeter](b).ToProviderInstance(ProviderFunc(func() (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, nil
		})).In(Singleton)
	})

	for i := 0; i < 3; i++ {
		v, err := inj.Resolve(KeyOf[Greeter]())
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// recordingScope 按 Key 缓存，并记录被作用到哪些 Key 上
type recordingScope struct {
	mu     sync.Mutex
	keys   []Key
	values map[Key]any
}

func newRecordingScope() *recordingScope {
	return &recordingScope{values: make(map[Key]any)}
}

func (s *recordingScope) Scope(key Key, unscoped Producer) Producer {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()

	return ProducerFunc(func(rc *ResolveContext) (any, error) {
		s.mu.Lock()
		v, ok := s.values[key]
		s.mu.Unlock()
		if ok {
			return v, nil
		}
		v, err := unscoped.Produce(rc)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.values[key] = v
		s.mu.Unlock()
		return v, nil
	})
}

func (s *recordingScope) String() string { return "Recording" }

func (s *recordingScope) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[Key]any)
}

func TestCustomScope(t *testing.T) {
	scope := newRecordingScope()
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).In(scope)
		Bind[Greeter](b).To(KeyOf[*englishGreeter]()).In(scope)
	})

	assert.Equal(t, []Key{KeyOf[*Dagny](), KeyOf[Greeter]()}, scope.keys)

	d1, err := Get[*Dagny](inj)
	require.NoError(t, err)
	d2, err := Get[*Dagny](inj)
	require.NoError(t, err)
	assert.Same(t, d1, d2)

	scope.reset()
	d3, err := Get[*Dagny](inj)
	require.NoError(t, err)
	assert.NotSame(t, d1, d3)

	binding, _ := inj.Binding(KeyOf[*Dagny]())
	assert.Equal(t, "Recording", binding.Scope().String())
}

func TestScopeStrings(t *testing.T) {
	assert.Equal(t, "Singleton", Singleton.String())
	assert.Equal(t, "Unscoped", Unscoped.String())
}

func TestSingletonProviderResolvingAnotherSingleton(t *testing.T) {
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Dagny](b).In(Singleton)
		Bind[*Bob](b).ToConstructor(NewBob).In(Singleton)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		bob, err := Get[*Bob](inj)
		assert.NoError(t, err)
		assert.NotNil(t, bob.Dagny)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested singleton creation deadlocked")
	}
}

func TestSlowSingletonDoesNotBlockUnrelatedSingleton(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	inj := compile(t, StageDevelopment, func(b *Binder) {
		Bind[*Bob](b).ToConstructor(func() *Bob {
			close(entered)
			<-release
			return &Bob{}
		}).In(Singleton)
		Bind[*Dagny](b).In(Singleton)
	})

	slow := make(chan error, 1)
	go func() {
		_, err := Get[*Bob](inj)
		slow <- err
	}()
	<-entered

	fast := make(chan error, 1)
	go func() {
		_, err := Get[*Dagny](inj)
		fast <- err
	}()

	select {
	case err := <-fast:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("unrelated singleton waited for a slow constructor")
	}

	close(release)
	require.NoError(t, <-slow)
}

type Alpha struct {
	Beta *Beta `di:""`
}

type Beta struct {
	Alpha *Alpha `di:""`
}

func TestConcurrentSingletonCycleIsReportedNotDeadlocked(t *testing.T) {
	alphaIn, betaIn := make(chan struct{}), make(chan struct{})
	var alphaOnce, betaOnce sync.Once
	b := NewBinder()
	b.RegisterConstructor(func() *Alpha {
		alphaOnce.Do(func() { close(alphaIn) })
		<-betaIn
		return &Alpha{}
	})
	b.RegisterConstructor(func() *Beta {
		betaOnce.Do(func() { close(betaIn) })
		<-alphaIn
		return &Beta{}
	})
	Bind[*Alpha](b).In(Singleton)
	Bind[*Beta](b).In(Singleton)
	inj, err := Compile(b, StageDevelopment)
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() {
		_, err := Get[*Alpha](inj)
		errs <- err
	}()
	go func() {
		_, err := Get[*Beta](inj)
		errs <- err
	}()

	var failed, succeeded int
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				assert.ErrorIs(t, err, ErrCircularDependency)
				failed++
			} else {
				succeeded++
			}
		case <-time.After(2 * time.Second):
			t.Fatal("concurrent singleton cycle deadlocked")
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)

	alpha, err := Get[*Alpha](inj)
	require.NoError(t, err)
	beta, err := Get[*Beta](inj)
	require.NoError(t, err)
	assert.Same(t, beta, alpha.Beta)
	assert.Same(t, alpha, beta.Alpha)
}
