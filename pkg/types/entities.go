package types

import "time"

// ============================================================================
//                              实体描述
// ============================================================================

// TopicInfo 主题描述
//
// 提交创建后视为不可变；同一会话内同名主题只解析一次远端标识。
type TopicInfo struct {
	// Name 逻辑名称
	Name string

	// Attributes 实体属性
	Attributes map[string]string

	// Tags 实体标签
	Tags map[string]string

	// SubscriptionAttributes 订阅属性（创建订阅时与队列级属性合并）
	SubscriptionAttributes map[string]string
}

// QueueInfo 队列描述
//
// 提交创建后视为不可变；同一会话内同名队列只解析一次远端标识。
type QueueInfo struct {
	// Name 逻辑名称
	Name string

	// Attributes 实体属性
	Attributes map[string]string

	// Tags 实体标签
	Tags map[string]string

	// SubscriptionAttributes 订阅属性（冲突时覆盖主题级属性）
	SubscriptionAttributes map[string]string
}

// ============================================================================
//                              接收设置
// ============================================================================

// ReceiveSettings 接收循环配置
//
// 只读，由轮询循环的调用方提供。
type ReceiveSettings struct {
	// QueueName 队列逻辑名称（必须已在会话内创建）
	QueueName string

	// PrefetchCount 单轮最大在途消息数
	PrefetchCount int

	// WaitTime 单次轮询等待时间
	WaitTime time.Duration
}

// ============================================================================
//                              消息
// ============================================================================

// Message 接收到的一条消息
type Message struct {
	// MessageID 后端分配的消息标识
	MessageID string

	// Body 消息体
	Body []byte

	// ReceiptHandle 回执令牌（确认删除时使用）
	ReceiptHandle string

	// Attributes 后端系统属性
	Attributes map[string]string

	// Headers 用户消息头（在原生属性袋之上的统一访问）
	Headers HeaderCarrier
}
