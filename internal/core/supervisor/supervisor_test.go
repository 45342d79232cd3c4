package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/types"
)

// ============================================================================
//                              测试替身
// ============================================================================

// fakeConn 测试用连接
type fakeConn struct {
	endpoint string
	closed   chan error
	done     atomic.Bool
}

func newFakeConn(endpoint string) *fakeConn {
	return &fakeConn{
		endpoint: endpoint,
		closed:   make(chan error, 1),
	}
}

func (c *fakeConn) Endpoint() string           { return c.endpoint }
func (c *fakeConn) Payload(string) (any, bool) { return nil, false }
func (c *fakeConn) Closed() <-chan error       { return c.closed }
func (c *fakeConn) Close() error               { c.done.Store(true); return nil }

// shutdown 模拟一次非请求关闭
func (c *fakeConn) shutdown(err error) { c.closed <- err }

// fakeFactory 测试用连接工厂
//
// 依次返回 failures 中的错误，耗尽后开始成功。
type fakeFactory struct {
	mu       sync.Mutex
	failures []error
	attempts int
	conns    []*fakeConn
	times    []time.Time
}

func (f *fakeFactory) Create(ctx context.Context) (pkgif.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.times = append(f.times, time.Now())
	idx := f.attempts
	f.attempts++
	if idx < len(f.failures) {
		return nil, f.failures[idx]
	}
	conn := newFakeConn("fake://broker")
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeFactory) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func fastPolicy() *retry.Policy {
	return retry.NewPolicy(&retry.Config{
		MinInterval:  5 * time.Millisecond,
		IntervalStep: 5 * time.Millisecond,
		MaxInterval:  20 * time.Millisecond,
		MaxTotalWait: time.Second,
	})
}

func connErr(msg string) error {
	return &types.ConnectionError{Endpoint: "fake://broker", Err: errors.New(msg)}
}

// waitForState 轮询等待监督器达到目标状态
func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never reached %v, current %v", want, s.State())
}

// ============================================================================
//                              创建与单飞
// ============================================================================

// TestSupervisor_Get_SingleConnection 测试并发请求共享同一条连接
func TestSupervisor_Get_SingleConnection(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	const callers = 16
	conns := make([]pkgif.Connection, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := s.Get(context.Background())
			require.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	// 所有调用方观察到同一条连接，工厂只被调用一次
	for i := 1; i < callers; i++ {
		require.Same(t, conns[0], conns[i])
	}
	require.Equal(t, 1, factory.attemptCount())
	require.Equal(t, StateReady, s.State())
}

// TestSupervisor_RetryThenReady 测试可重试失败后最终就绪
func TestSupervisor_RetryThenReady(t *testing.T) {
	factory := &fakeFactory{
		failures: []error{connErr("refused"), connErr("refused"), connErr("refused")},
	}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	conn, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)

	// 恰好 4 次工厂调用：3 次失败 + 1 次成功
	require.Equal(t, 4, factory.attemptCount())
	require.Equal(t, StateReady, s.State())

	// 尝试间隔遵循退避下限（5ms, 10ms, 15ms）
	factory.mu.Lock()
	times := factory.times
	factory.mu.Unlock()
	require.Len(t, times, 4)
	require.GreaterOrEqual(t, times[1].Sub(times[0]), 5*time.Millisecond)
	require.GreaterOrEqual(t, times[2].Sub(times[1]), 10*time.Millisecond)
	require.GreaterOrEqual(t, times[3].Sub(times[2]), 15*time.Millisecond)
}

// TestSupervisor_FatalShortCircuits 测试致命错误短路重试循环
func TestSupervisor_FatalShortCircuits(t *testing.T) {
	fatal := &types.AuthenticationError{Err: errors.New("bad credentials")}
	factory := &fakeFactory{failures: []error{fatal}}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	start := time.Now()
	_, err = s.Get(context.Background())
	require.Error(t, err)
	require.True(t, types.IsAuthenticationError(err))

	// 恰好一次尝试，无退避延迟
	require.Equal(t, 1, factory.attemptCount())
	require.Less(t, time.Since(start), 500*time.Millisecond)

	// 失败后回到 Idle，下一次请求重新创建
	conn, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Equal(t, 2, factory.attemptCount())
}

// TestSupervisor_ExhaustedTotalWait 测试累计等待上限
func TestSupervisor_ExhaustedTotalWait(t *testing.T) {
	failures := make([]error, 100)
	for i := range failures {
		failures[i] = connErr("down")
	}
	factory := &fakeFactory{failures: failures}
	policy := retry.NewPolicy(&retry.Config{
		MinInterval:  5 * time.Millisecond,
		IntervalStep: 0,
		MaxInterval:  5 * time.Millisecond,
		MaxTotalWait: 20 * time.Millisecond,
	})
	s, err := New(factory, policy)
	require.NoError(t, err)
	defer s.Stop(context.Background())

	_, err = s.Get(context.Background())
	require.Error(t, err)
	require.True(t, types.IsConnectionError(err))
	// 少量尝试后即放弃
	require.Less(t, factory.attemptCount(), 10)
}

// ============================================================================
//                              故障与重建
// ============================================================================

// TestSupervisor_UnsolicitedShutdownRecreates 测试非请求关闭触发重建
func TestSupervisor_UnsolicitedShutdownRecreates(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	conn1, err := s.Get(context.Background())
	require.NoError(t, err)

	// 模拟服务端主动断开
	conn1.(*fakeConn).shutdown(errors.New("server closed connection"))
	waitForState(t, s, StateFaulted)

	// 下一次请求触发重建而不是终止
	conn2, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotSame(t, conn1, conn2)
	require.Equal(t, 2, factory.attemptCount())

	// 作废的连接已被关闭释放
	require.True(t, conn1.(*fakeConn).done.Load())
}

// TestSupervisor_SolicitedCloseDoesNotFault 测试主动关闭不触发故障
func TestSupervisor_SolicitedCloseDoesNotFault(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)

	_, err = s.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Stop(context.Background()))
	require.Equal(t, StateStopped, s.State())
}

// ============================================================================
//                              停止
// ============================================================================

// TestSupervisor_StoppedFailsFast 测试停止后快速失败
func TestSupervisor_StoppedFailsFast(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	require.NoError(t, s.Stop(context.Background()))

	_, err = s.Get(context.Background())
	require.ErrorIs(t, err, ErrStopped)

	_, err = s.Active(context.Background())
	require.ErrorIs(t, err, ErrStopped)

	// 终态：不会再有任何工厂调用
	require.Equal(t, 0, factory.attemptCount())
}

// TestSupervisor_StopAbortsBackoffDelay 测试停止立即中止退避延迟
func TestSupervisor_StopAbortsBackoffDelay(t *testing.T) {
	failures := make([]error, 100)
	for i := range failures {
		failures[i] = connErr("down")
	}
	factory := &fakeFactory{failures: failures}
	policy := retry.NewPolicy(&retry.Config{
		MinInterval:  10 * time.Second, // 远超测试时长的延迟
		IntervalStep: 0,
		MaxInterval:  10 * time.Second,
	})
	s, err := New(factory, policy)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Get(context.Background())
		errCh <- err
	}()

	// 等待第一次失败进入退避
	require.Eventually(t, func() bool {
		return factory.attemptCount() >= 1
	}, 2*time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Stop(context.Background()))

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released after stop")
	}
	// 延迟被立即中止，而不是等 10s 结束
	require.Less(t, time.Since(start), time.Second)
}

// TestSupervisor_CallerCancelDoesNotAbortCreation 测试单个调用方取消不影响在途创建
func TestSupervisor_CallerCancelDoesNotAbortCreation(t *testing.T) {
	factory := &fakeFactory{failures: []error{connErr("refused")}}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// 创建仍在进行，后续调用方正常拿到连接
	conn, err := s.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
}

// ============================================================================
//                              活动租约
// ============================================================================

// TestHandle_UnionCancellation 测试租约上下文的并集取消
func TestHandle_UnionCancellation(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	// 调用方取消 → 租约取消
	ctx, cancel := context.WithCancel(context.Background())
	h1, err := s.Active(ctx)
	require.NoError(t, err)
	cancel()
	select {
	case <-h1.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("handle context not cancelled by caller")
	}
	h1.Release()

	// 监督器停止 → 租约取消
	h2, err := s.Active(context.Background())
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		h2.Release()
	}()
	require.NoError(t, s.Stop(context.Background()))
	select {
	case <-h2.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("handle context not cancelled by supervisor stop")
	}
}

// TestSupervisor_StopWaitsForHandles 测试停止等待活动租约
func TestSupervisor_StopWaitsForHandles(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)

	h, err := s.Active(context.Background())
	require.NoError(t, err)

	// 租约未释放：受限停止超时
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	// 释放后停止完成
	h.Release()
	require.NoError(t, s.Stop(context.Background()))
	require.Equal(t, StateStopped, s.State())
}

// TestHandle_ReleaseIdempotent 测试重复释放安全
func TestHandle_ReleaseIdempotent(t *testing.T) {
	factory := &fakeFactory{}
	s, err := New(factory, fastPolicy())
	require.NoError(t, err)
	defer s.Stop(context.Background())

	h, err := s.Active(context.Background())
	require.NoError(t, err)
	h.Release()
	h.Release()
	h.Release()
}
