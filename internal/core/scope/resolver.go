package scope

import (
	"context"

	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/lib/log"
)

var logger = log.Logger("core/scope")

// ctxKey 消息处理作用域的上下文键（不导出，外部只能走本包入口）
type ctxKey struct{}

// WithConsumeContext 把消息处理上下文挂到调用链上
//
// 消费管道在调用处理函数前建立作用域；同一调用链上的
// 后续端点解析会优先命中它。
func WithConsumeContext(ctx context.Context, cc pkgif.ConsumeContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, cc)
}

// ConsumeContextFrom 从调用链取回当前消息处理上下文
func ConsumeContextFrom(ctx context.Context) (pkgif.ConsumeContext, bool) {
	cc, ok := ctx.Value(ctxKey{}).(pkgif.ConsumeContext)
	return cc, ok
}

// Accessor 作用域访问器
//
// 无状态；全部状态都在调用链自身上。
type Accessor struct{}

// NewAccessor 创建作用域访问器
func NewAccessor() *Accessor {
	return &Accessor{}
}

// ConsumeContext 实现 interfaces.ScopeAccessor
func (a *Accessor) ConsumeContext(ctx context.Context) (pkgif.ConsumeContext, bool) {
	return ConsumeContextFrom(ctx)
}

// Resolver 作用域感知的端点解析器
//
// 两级回退：调用链上存在消息处理作用域时，解析出的端点
// 共享该消息的传输通道；否则回退到总线级端点。
// 解析是纯读取，不产生远端调用。
type Resolver struct {
	accessor pkgif.ScopeAccessor
	send     pkgif.SendEndpoint
	publish  pkgif.PublishEndpoint
}

// NewResolver 创建端点解析器
//
// send/publish 是作用域之外的总线级回退端点。
func NewResolver(accessor pkgif.ScopeAccessor, send pkgif.SendEndpoint, publish pkgif.PublishEndpoint) *Resolver {
	if accessor == nil {
		accessor = NewAccessor()
	}
	return &Resolver{accessor: accessor, send: send, publish: publish}
}

// SendEndpoint 解析当前调用链上的发送端点
func (r *Resolver) SendEndpoint(ctx context.Context) pkgif.SendEndpoint {
	if cc, ok := r.accessor.ConsumeContext(ctx); ok {
		logger.Debug("端点解析命中消息处理作用域")
		return cc
	}
	return r.send
}

// PublishEndpoint 解析当前调用链上的发布端点
func (r *Resolver) PublishEndpoint(ctx context.Context) pkgif.PublishEndpoint {
	if cc, ok := r.accessor.ConsumeContext(ctx); ok {
		return cc
	}
	return r.publish
}
