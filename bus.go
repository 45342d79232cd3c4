package masstransit

import (
	"context"
	"fmt"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	"github.com/Omsaaf/MassTransit/internal/core/scope"
	"github.com/Omsaaf/MassTransit/internal/core/supervisor"
	"github.com/Omsaaf/MassTransit/internal/core/transport/amazonsqs"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/lib/log"
	"github.com/Omsaaf/MassTransit/pkg/types"
)

var logger = log.Logger("masstransit")

// Bus 消息总线的连接与会话入口
//
// 持有连接监督器与总线级端点。所有会话共享监督器管理的
// 同一条连接；连接故障对调用方透明，下一次请求触发重建。
type Bus struct {
	sup      *supervisor.Supervisor
	resolver *scope.Resolver
}

// New 创建总线
//
// 不建立连接：连接在第一次会话请求时惰性创建。
func New(opts ...Option) (*Bus, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	policy := retry.NewPolicy(o.retry)
	factory := o.factory
	if factory == nil {
		factory = amazonsqs.NewFactory(o.transport, policy)
	}
	sup, err := supervisor.New(factory, policy)
	if err != nil {
		return nil, err
	}

	b := &Bus{sup: sup}
	b.resolver = scope.NewResolver(scope.NewAccessor(), b, b)
	logger.Debug("总线已创建", "region", o.transport.Region)
	return b, nil
}

// State 返回连接监督器状态
func (b *Bus) State() supervisor.State {
	return b.sup.State()
}

// ClientContext 返回共享连接上的客户端会话
//
// 阻塞直至连接就绪；总线已停止时返回 ErrStopped。
// 同一条连接上的重复调用返回同一个会话（实体缓存共享）。
func (b *Bus) ClientContext(ctx context.Context) (pkgif.ClientContext, error) {
	conn, err := b.sup.Get(ctx)
	if err != nil {
		return nil, err
	}
	session, ok := amazonsqs.ClientContextFor(conn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	return session, nil
}

// Stop 停止总线
//
// 取消所有派生租约，关闭当前连接，并等待活动消费循环
// 结束（受 ctx 限制）。停止后的总线不可复用。
func (b *Bus) Stop(ctx context.Context) error {
	return b.sup.Stop(ctx)
}

// ════════════════════════════════════════════════════════════════════════════
//                              总线级端点
// ════════════════════════════════════════════════════════════════════════════

// Send 通过共享连接向队列发送消息
//
// 实现 interfaces.SendEndpoint；作为作用域之外的总线级回退端点。
func (b *Bus) Send(ctx context.Context, queueID string, body []byte, headers ...types.Header) error {
	session, err := b.ClientContext(ctx)
	if err != nil {
		return err
	}
	return session.Send(ctx, queueID, body, headers...)
}

// Publish 通过共享连接向主题发布消息
//
// 实现 interfaces.PublishEndpoint。
func (b *Bus) Publish(ctx context.Context, topicID string, body []byte, headers ...types.Header) error {
	session, err := b.ClientContext(ctx)
	if err != nil {
		return err
	}
	return session.Publish(ctx, topicID, body, headers...)
}

// SendEndpoint 解析当前调用链上的发送端点
//
// 消息处理作用域内返回共享该消息传输通道的端点，
// 否则返回总线级端点。
func (b *Bus) SendEndpoint(ctx context.Context) pkgif.SendEndpoint {
	return b.resolver.SendEndpoint(ctx)
}

// PublishEndpoint 解析当前调用链上的发布端点
func (b *Bus) PublishEndpoint(ctx context.Context) pkgif.PublishEndpoint {
	return b.resolver.PublishEndpoint(ctx)
}

// ════════════════════════════════════════════════════════════════════════════
//                              消费
// ════════════════════════════════════════════════════════════════════════════

// Consume 在队列上运行受监督的消费循环直至 ctx 取消
//
// 每条消息的处理上下文都携带消息处理作用域：处理函数内
// 通过 SendEndpoint/PublishEndpoint 解析出的端点共享本消息
// 的传输通道。连接故障时在重建的连接上自动恢复循环——
// 新会话的实体缓存为空，恢复前用 queue 重新声明队列。
// 只有致命错误（认证失败等）才终止消费。
func (b *Bus) Consume(ctx context.Context, queue *types.QueueInfo, settings types.ReceiveSettings, handler pkgif.Handler) error {
	if queue == nil || queue.Name == "" {
		return types.ErrEmptyEntityName
	}
	settings.QueueName = queue.Name

	for {
		h, err := b.sup.Active(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		session, ok := amazonsqs.ClientContextFor(h.Connection())
		if !ok {
			h.Release()
			return fmt.Errorf("unexpected connection type %T", h.Connection())
		}

		// 会话生命周期不超过连接：每次（重新）取得会话都声明队列，
		// 使重建连接上的空缓存重新解析到远端标识
		if _, err := session.EnsureQueue(h.Context(), queue); err != nil {
			h.Release()
			switch {
			case ctx.Err() != nil:
				return nil
			case types.IsConnectionError(err):
				logger.Warn("队列声明因连接故障失败，准备恢复",
					"queue", queue.Name, "error", err)
				continue
			default:
				return err
			}
		}

		scoped := func(mctx context.Context, msg *types.Message) error {
			return handler(scope.WithConsumeContext(mctx, session), msg)
		}

		err = session.Consume(h.Context(), settings, scoped)
		h.Release()

		switch {
		case err == nil:
			// 干净退出（调用方取消或总线停止）
			return nil
		case ctx.Err() != nil:
			return nil
		case types.IsConnectionError(err):
			// 连接已作废：监督器重建后恢复循环
			logger.Warn("消费循环因连接故障中断，准备恢复",
				"queue", queue.Name, "error", err)
			continue
		default:
			return err
		}
	}
}
