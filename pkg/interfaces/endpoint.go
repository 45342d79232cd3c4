package interfaces

import (
	"context"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

// SendEndpoint 发送能力
type SendEndpoint interface {
	// Send 向队列发送消息
	//
	// headers 由传输层转换为后端原生消息属性，随消息送达。
	Send(ctx context.Context, queueID string, body []byte, headers ...types.Header) error
}

// PublishEndpoint 发布能力
type PublishEndpoint interface {
	// Publish 向主题发布消息
	Publish(ctx context.Context, topicID string, body []byte, headers ...types.Header) error
}

// ConsumeContext 消息处理单元的环境上下文
//
// 由消费管道在处理一条消息期间建立，同时具备发送与发布能力。
// 端点解析时优先返回它，使"处理中回发"走同一条传输通道。
type ConsumeContext interface {
	SendEndpoint
	PublishEndpoint
}

// ScopeAccessor 环境作用域访问器
//
// 显式从调用链取回当前消息处理上下文；不存在时返回 false。
// 刻意不使用任何隐式线程本地状态。
type ScopeAccessor interface {
	ConsumeContext(ctx context.Context) (ConsumeContext, bool)
}
