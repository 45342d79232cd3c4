// Package masstransit 提供消息总线下层的弹性连接与客户端会话层
//
// 连接层对传输协议无感知：它只关心"连接的生命周期"——
// 惰性创建、指数退避重试、非请求关闭检测与优雅停止。
// 会话层在一条共享连接之上提供消息实体（主题、队列、订阅）
// 的幂等管理与消息收发。
//
// # 核心概念
//
//   - Bus: 用户交互的主入口，持有连接监督器与总线级端点
//   - Supervisor: 独占管理至多一条活动连接，故障时自动重建
//   - ClientContext: 单连接上的客户端会话，缓存实体解析结果
//   - Scope: 消息处理作用域，使"处理中回发"共享消息自身的传输通道
//
// # 快速开始
//
//	import masstransit "github.com/Omsaaf/MassTransit"
//
//	// 1. 创建总线
//	bus, err := masstransit.New(
//	    masstransit.WithRegion("us-east-1"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bus.Stop(context.Background())
//
//	// 2. 取得会话并声明拓扑
//	session, err := bus.ClientContext(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = session.CreateSubscription(ctx,
//	    &types.TopicInfo{Name: "order-events"},
//	    &types.QueueInfo{Name: "orders"},
//	)
//
//	// 3. 消费消息
//	err = bus.Consume(ctx, &types.QueueInfo{Name: "orders"},
//	    types.ReceiveSettings{PrefetchCount: 10},
//	    func(ctx context.Context, msg *types.Message) error {
//	        // 作用域内解析的端点共享本消息的传输通道
//	        return bus.PublishEndpoint(ctx).Publish(ctx, arn, msg.Body)
//	    })
//
// 连接故障对调用方透明：下一次请求触发重建而不是报错。
// 认证失败是致命错误，立即浮出且不重试。
package masstransit
