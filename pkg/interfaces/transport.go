package interfaces

import (
	"context"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

// ============================================================================
//                              连接层
// ============================================================================

// Connection 一条到消息服务端的活动连接
//
// 由连接监督器独占持有，派生会话只读共享。
// 构造完成后除关闭/故障信号外不再变更。
type Connection interface {
	// Endpoint 返回端点描述
	Endpoint() string

	// Payload 读取构造时附加的元数据（如原始拓扑与设置）
	Payload(key string) (any, bool)

	// Closed 返回非请求关闭信号通道
	//
	// 当连接因本进程之外的原因终止时（网络故障、服务端主动断开），
	// 通道收到恰好一个错误。主动 Close 不触发该信号。
	Closed() <-chan error

	// Close 主动关闭连接并释放原生资源
	Close() error
}

// ConnectionFactory 传输专属的连接构造器
//
// Create 失败时返回已分类的传输错误：
//   - 监督器已取消：原样返回 context.Canceled，不尝试连接
//   - 认证失败：*types.AuthenticationError（致命，不重试）
//   - 其余连接失败：*types.ConnectionError（可重试）
type ConnectionFactory interface {
	Create(ctx context.Context) (Connection, error)
}

// ============================================================================
//                              会话层
// ============================================================================

// Handler 消息处理函数
//
// 由接收循环并发调用；返回错误只做记录，不终止循环。
type Handler func(ctx context.Context, msg *types.Message) error

// ClientContext 单连接上的客户端会话
//
// 实体管理调用内部串行（名称到远端标识的缓存由单锁保护），
// 消息收发允许并发。会话生命周期不超过其所属连接。
type ClientContext interface {
	// EnsureTopic 确保主题存在并返回远端标识
	//
	// 命中缓存时不发起远端调用；同名并发调用只产生一次远端创建。
	EnsureTopic(ctx context.Context, topic *types.TopicInfo) (string, error)

	// EnsureQueue 确保队列存在并返回远端标识
	EnsureQueue(ctx context.Context, queue *types.QueueInfo) (string, error)

	// CreateSubscription 建立主题到队列的订阅并幂等授予发布权限
	CreateSubscription(ctx context.Context, topic *types.TopicInfo, queue *types.QueueInfo) error

	// DeleteTopic 删除主题（必要时先解析标识）
	DeleteTopic(ctx context.Context, topic *types.TopicInfo) error

	// DeleteQueue 删除队列（必要时先解析标识）
	DeleteQueue(ctx context.Context, queue *types.QueueInfo) error

	// Publish 向主题发布消息
	Publish(ctx context.Context, topicID string, body []byte, headers ...types.Header) error

	// Send 向队列发送消息
	Send(ctx context.Context, queueID string, body []byte, headers ...types.Header) error

	// Consume 运行接收循环直至 ctx 取消
	Consume(ctx context.Context, settings types.ReceiveSettings, handler Handler) error

	// DeleteMessage 按回执令牌删除消息
	//
	// 队列名称必须已在本会话内解析，否则返回 *types.UnknownEntityError。
	DeleteMessage(ctx context.Context, queueName, receiptHandle string) error

	// Purge 清空队列
	//
	// 队列名称必须已在本会话内解析，否则返回 *types.UnknownEntityError。
	Purge(ctx context.Context, queueName string) error
}
