package supervisor

import (
	"context"
	"sync"

	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// Handle 共享连接上的一个活动租约
//
// 租约的上下文是调用方上下文与监督器停止信号的并集：
// 任意一方取消都会取消租约。Release 必须在使用结束后
// 调用，Stop 会等待所有未释放的租约。
type Handle struct {
	conn pkgif.Connection
	ctx  context.Context

	releaseOnce sync.Once
	release     func()
}

// Connection 返回租约引用的连接
func (h *Handle) Connection() pkgif.Connection { return h.conn }

// Context 返回租约上下文
func (h *Handle) Context() context.Context { return h.ctx }

// Release 释放租约
//
// 幂等；取消租约上下文并解除对 Stop 的阻塞。
func (h *Handle) Release() {
	h.releaseOnce.Do(h.release)
}

// Active 派生一个活动租约
//
// 先确保共享连接就绪（必要时触发创建），再将调用方
// 上下文与监督器停止信号合并为租约上下文。
func (s *Supervisor) Active(ctx context.Context) (*Handle, error) {
	conn, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateStopping || s.state == StateStopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.handles.Add(1)
	s.mu.Unlock()

	hctx, cancel := context.WithCancel(ctx)
	unwatch := context.AfterFunc(s.rootCtx, cancel)

	h := &Handle{conn: conn, ctx: hctx}
	h.release = func() {
		unwatch()
		cancel()
		s.handles.Done()
	}
	return h, nil
}
