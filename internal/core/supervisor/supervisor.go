// Package supervisor 管理共享连接的完整生命周期
//
// 监督器独占持有至多一条到消息服务端的活动连接：
// 惰性创建、重试包裹的创建循环、非请求关闭检测、
// 优雅停止与取消传播。所有派生会话共享同一条连接；
// 旧连接仍然可用时绝不创建新连接。
//
// 状态机：
//
//	Idle → Creating → Ready → (Faulted | Stopping) → Stopped
//
// Faulted 不是终态：下一次请求立即重新进入 Creating。
// Stopped 是终态：永不重建。
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/lib/log"
)

var logger = log.Logger("core/supervisor")

// ============================================================================
//                              状态
// ============================================================================

// State 监督器状态
type State int32

const (
	// StateIdle 空闲（尚未创建连接）
	StateIdle State = iota

	// StateCreating 正在创建（重试循环进行中）
	StateCreating

	// StateReady 连接就绪
	StateReady

	// StateFaulted 连接已因非请求关闭作废
	StateFaulted

	// StateStopping 正在停止（等待活动租约结束）
	StateStopping

	// StateStopped 已停止（终态）
	StateStopped
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateFaulted:
		return "faulted"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              监督器
// ============================================================================

// creation 一次进行中的创建尝试序列
//
// 并发请求共享同一个 creation，等待同一结果，
// 保证任意时刻至多一个创建序列在途。
type creation struct {
	done chan struct{}
	conn pkgif.Connection
	err  error
}

// Supervisor 连接监督器
type Supervisor struct {
	mu sync.Mutex

	factory pkgif.ConnectionFactory
	policy  *retry.Policy

	state     State
	conn      pkgif.Connection
	creating  *creation
	watchStop chan struct{}

	// rootCtx 是取消树的根：Stop 取消它，
	// 所有活动租约与创建循环都由它派生。
	rootCtx    context.Context
	rootCancel context.CancelFunc

	handles sync.WaitGroup
}

// New 创建监督器
//
// policy 为 nil 时使用默认重试策略。
func New(factory pkgif.ConnectionFactory, policy *retry.Policy) (*Supervisor, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if policy == nil {
		policy = retry.NewPolicy(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		factory:    factory,
		policy:     policy,
		state:      StateIdle,
		rootCtx:    ctx,
		rootCancel: cancel,
	}, nil
}

// State 返回当前状态
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get 返回共享连接
//
// 阻塞直至连接就绪；监督器已停止时返回 ErrStopped。
// 首个请求触发创建，后续并发请求等待同一次在途创建，
// 不会产生并行的连接尝试。
//
// 创建循环由监督器自身的生命周期驱动：调用方取消只影响
// 它自己的等待，不会中止其他调用方正在等待的创建。
func (s *Supervisor) Get(ctx context.Context) (pkgif.Connection, error) {
	s.mu.Lock()

	switch s.state {
	case StateStopping, StateStopped:
		s.mu.Unlock()
		return nil, ErrStopped

	case StateReady:
		conn := s.conn
		s.mu.Unlock()
		return conn, nil

	case StateIdle, StateFaulted:
		c := &creation{done: make(chan struct{})}
		s.creating = c
		s.state = StateCreating
		s.mu.Unlock()
		go s.createLoop(c)
		return s.await(ctx, c)

	default: // StateCreating
		c := s.creating
		s.mu.Unlock()
		return s.await(ctx, c)
	}
}

// await 等待一次在途创建的结果
func (s *Supervisor) await(ctx context.Context, c *creation) (pkgif.Connection, error) {
	select {
	case <-c.done:
		if c.err != nil {
			return nil, c.err
		}
		return c.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.rootCtx.Done():
		return nil, ErrStopped
	}
}

// createLoop 重试包裹的创建循环
//
// 可重试失败按策略退避后继续；致命失败立即结束；
// 监督器停止时以 ErrStopped 结束。退避期间的取消
// 立即中止等待。
func (s *Supervisor) createLoop(c *creation) {
	var total time.Duration

	for attempt := 0; ; attempt++ {
		conn, err := s.factory.Create(s.rootCtx)
		if err == nil {
			s.install(c, conn)
			return
		}

		if s.rootCtx.Err() != nil {
			s.fail(c, ErrStopped)
			return
		}

		if !s.policy.ShouldRetry(err) {
			logger.Error("连接创建失败（致命），不再重试", "error", err)
			s.fail(c, err)
			return
		}

		if s.policy.Exhausted(total) {
			logger.Error("连接创建失败，累计等待超限",
				"waited", total, "attempts", attempt+1, "error", err)
			s.fail(c, err)
			return
		}

		logger.Warn("连接创建失败，退避后重试",
			"attempt", attempt+1, "delay", s.policy.Delay(attempt), "error", err)

		waited, werr := s.policy.Wait(s.rootCtx, attempt)
		total += waited
		if werr != nil {
			s.fail(c, ErrStopped)
			return
		}
	}
}

// install 安装新建连接并启动非请求关闭监视
func (s *Supervisor) install(c *creation, conn pkgif.Connection) {
	s.mu.Lock()
	if s.state == StateStopping || s.state == StateStopped {
		// 创建成功与停止竞争：释放连接，向等待方报告停止
		s.mu.Unlock()
		_ = conn.Close()
		s.finish(c, nil, ErrStopped)
		return
	}

	s.conn = conn
	s.state = StateReady
	s.creating = nil

	stop := make(chan struct{})
	s.watchStop = stop
	s.mu.Unlock()

	go s.watch(conn, stop)

	logger.Info("连接已就绪", "endpoint", conn.Endpoint())
	s.finish(c, conn, nil)
}

// fail 以错误结束一次创建序列
func (s *Supervisor) fail(c *creation, err error) {
	s.mu.Lock()
	if s.creating == c {
		s.creating = nil
		if s.state == StateCreating {
			s.state = StateIdle
		}
	}
	s.mu.Unlock()
	s.finish(c, nil, err)
}

// finish 发布创建结果并唤醒所有等待方
func (s *Supervisor) finish(c *creation, conn pkgif.Connection, err error) {
	c.conn = conn
	c.err = err
	close(c.done)
}

// watch 监视一条连接的非请求关闭信号
//
// 信号到达时将监督器置为 Faulted 并作废连接；
// 下一次请求会触发重建而不是终止。监视器在连接
// 被作废或监督器停止时确定性退出，不会遗留
// 针对已释放资源的回调。
func (s *Supervisor) watch(conn pkgif.Connection, stop <-chan struct{}) {
	select {
	case err := <-conn.Closed():
		s.mu.Lock()
		if s.conn == conn && s.state == StateReady {
			s.state = StateFaulted
			s.conn = nil
			s.watchStop = nil
		}
		s.mu.Unlock()

		logger.Warn("检测到非请求关闭，连接作废",
			"endpoint", conn.Endpoint(), "error", err)
		_ = conn.Close()

	case <-stop:
	}
}

// ============================================================================
//                              停止
// ============================================================================

// Stop 停止监督器
//
// 取消所有派生租约与在途创建，关闭当前连接，
// 并等待活动租约结束（受 ctx 限制）。停止后的
// 监督器进入终态，所有后续请求返回 ErrStopped。
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	alreadyStopping := s.state == StateStopping
	s.state = StateStopping

	conn := s.conn
	s.conn = nil
	if s.watchStop != nil {
		close(s.watchStop)
		s.watchStop = nil
	}
	s.mu.Unlock()

	if !alreadyStopping {
		logger.Info("正在停止监督器")
	}
	s.rootCancel()

	if conn != nil {
		_ = conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.handles.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return ctx.Err()
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	logger.Info("监督器已停止")
	return nil
}
