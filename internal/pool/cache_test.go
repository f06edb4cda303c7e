package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
)

type fakePool struct {
	url    string
	params Params
	closed atomic.Bool
}

func (f *fakePool) Kind() dsn.Kind { return dsn.KindSQLite }
func (f *fakePool) Query(context.Context, string) (*Rows, error) {
	return &Rows{Columns: []string{"1"}, Values: [][]any{{int64(1)}}}, nil
}
func (f *fakePool) Ping(context.Context) error { return nil }
func (f *fakePool) Close()                     { f.closed.Store(true) }

type spyFactory struct {
	calls atomic.Int32
	fail  atomic.Bool
	gate  chan struct{}
}

func (s *spyFactory) build(_ context.Context, url string, p Params) (Pool, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return &fakePool{url: url, params: p}, nil
}

func TestCacheSameKeySamePool(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))
	ctx := context.Background()
	url := "postgresql://u:p@localhost:5432/app"

	a, err := c.Get(ctx, url, dsn.DefaultPoolOptions())
	require.NoError(t, err)
	b, err := c.Get(ctx, url, dsn.DefaultPoolOptions())
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.EqualValues(t, 1, spy.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCacheDistinctOptionsDistinctPools(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))
	ctx := context.Background()
	url := "sqlite:///app.db"

	small := dsn.DefaultPoolOptions()
	big := dsn.DefaultPoolOptions()
	big.MaxPoolSize = 20

	a, err := c.Get(ctx, url, small)
	require.NoError(t, err)
	b, err := c.Get(ctx, url, big)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.Len())
}

func TestCacheConcurrentFirstCallers(t *testing.T) {
	spy := &spyFactory{gate: make(chan struct{})}
	c := NewCache(WithFactory(spy.build))
	ctx := context.Background()
	url := "mysql://root@db:3306/shop"

	const callers = 16
	got := make([]Pool, callers)
	var g errgroup.Group
	var started sync.WaitGroup
	started.Add(callers)
	for i := range callers {
		g.Go(func() error {
			started.Done()
			p, err := c.Get(ctx, url, dsn.DefaultPoolOptions())
			got[i] = p
			return err
		})
	}
	started.Wait()
	close(spy.gate)
	require.NoError(t, g.Wait())

	for i := 1; i < callers; i++ {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, c.Len())
}

// ctxFactory builds only once its gate opens and gives up when its ctx ends.
type ctxFactory struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (f *ctxFactory) build(ctx context.Context, url string, p Params) (Pool, error) {
	f.calls.Add(1)
	select {
	case <-f.gate:
		return &fakePool{url: url, params: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCacheFirstCallerCancelDoesNotFailOthers(t *testing.T) {
	f := &ctxFactory{gate: make(chan struct{})}
	c := NewCache(WithFactory(f.build))
	url := "postgresql://u@db:5432/app"

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, url, dsn.DefaultPoolOptions())
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		p   Pool
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := c.Get(context.Background(), url, dsn.DefaultPoolOptions())
		second <- result{p, err}
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.NotNil(t, got.p)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCacheFailureNotCached(t *testing.T) {
	spy := &spyFactory{}
	spy.fail.Store(true)
	c := NewCache(WithFactory(spy.build))
	ctx := context.Background()
	url := "postgresql://u@down:5432/app"

	_, err := c.Get(ctx, url, dsn.DefaultPoolOptions())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.PoolConstruction))
	assert.Equal(t, 0, c.Len())

	spy.fail.Store(false)
	p, err := c.Get(ctx, url, dsn.DefaultPoolOptions())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.EqualValues(t, 2, spy.calls.Load())
}

func TestCacheRecycleForwarding(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))
	ctx := context.Background()

	off := dsn.DefaultPoolOptions()
	off.RecycleSeconds = -1
	p, err := c.Get(ctx, "sqlite:///a.db", off)
	require.NoError(t, err)
	assert.False(t, p.(*fakePool).params.RecycleSet)

	on := dsn.DefaultPoolOptions()
	on.RecycleSeconds = 0
	p, err = c.Get(ctx, "sqlite:///a.db", on)
	require.NoError(t, err)
	assert.True(t, p.(*fakePool).params.RecycleSet)
	assert.Zero(t, p.(*fakePool).params.Recycle)
}

func TestCacheOpenUnsupportedKindNeverBuilds(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))

	_, err := c.Open(context.Background(), dsn.Descriptor{
		Kind:        "oracle",
		RawOverride: "postgresql://u@h/db",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.UnsupportedKind))
	assert.Zero(t, spy.calls.Load())
}

func TestCacheOpenResolvesDescriptor(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))

	p, err := c.Open(context.Background(), dsn.Descriptor{
		Kind:     dsn.KindPostgres,
		Host:     "db",
		Port:     5433,
		Database: "app",
		User:     "u",
		Password: "p@ss",
		Pool:     dsn.DefaultPoolOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "postgresql://u:p%40ss@db:5433/app", p.(*fakePool).url)
}

func TestCacheClose(t *testing.T) {
	spy := &spyFactory{}
	c := NewCache(WithFactory(spy.build))

	p, err := c.Get(context.Background(), "sqlite://", dsn.DefaultPoolOptions())
	require.NoError(t, err)
	c.Close()

	assert.True(t, p.(*fakePool).closed.Load())
	assert.Equal(t, 0, c.Len())
}

type countingLocker struct {
	sync.Mutex
	locks atomic.Int32
}

func (l *countingLocker) Lock() {
	l.locks.Add(1)
	l.Mutex.Lock()
}

func TestCacheUsesInjectedLocker(t *testing.T) {
	spy := &spyFactory{}
	l := &countingLocker{}
	c := NewCache(WithFactory(spy.build), WithLocker(l))

	_, err := c.Get(context.Background(), "sqlite://", dsn.DefaultPoolOptions())
	require.NoError(t, err)
	assert.Positive(t, l.locks.Load())
}

func TestOptionPairs(t *testing.T) {
	o := dsn.DefaultPoolOptions()
	o.ExtraDriverArgs = map[string]string{"sslmode": "disable"}
	assert.Equal(t, []string{
		"connect_args.sslmode=disable",
		"max_overflow=10",
		"pool_pre_ping=true",
		"pool_size=5",
		"pool_timeout=30",
	}, optionPairs(o))

	a, b := dsn.DefaultPoolOptions(), dsn.DefaultPoolOptions()
	a.RecycleSeconds, b.RecycleSeconds = -1, -5
	assert.Equal(t, newKey("x", a), newKey("x", b))
}

func TestNewParams(t *testing.T) {
	p := NewParams(dsn.PoolOptions{MaxPoolSize: 5, MaxOverflow: 10, IdleTimeoutSeconds: 30, RecycleSeconds: 3600, PreflightCheck: true})
	assert.Equal(t, 5, p.MaxIdle)
	assert.Equal(t, 15, p.MaxConns)
	assert.EqualValues(t, 30_000_000_000, p.IdleTimeout)
	assert.True(t, p.RecycleSet)
	assert.True(t, p.Preflight)
}
