package amazonsqs

import (
	"sync"
	"sync/atomic"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// 连接载荷键
const (
	// PayloadSettings 原始传输配置
	PayloadSettings = "amazonsqs.settings"

	// PayloadEndpoints 配置的端点列表（含全部集群成员）
	PayloadEndpoints = "amazonsqs.endpoints"
)

// Connection 一条到 SQS/SNS 的共享连接
//
// 由监督器独占持有，派生会话只读共享。构造完成后
// 除关闭/故障信号外不再变更。
type Connection struct {
	endpoint string
	sqs      sqsAPI
	sns      snsAPI

	// payload 构造时附加的只读元数据
	payload map[string]any

	cfg    *Config
	policy *retry.Policy

	// closed 非请求关闭信号：恰好发出一次
	closed    chan error
	faultOnce sync.Once
	faulted   atomic.Bool

	// closing 主动关闭标记：置位后故障信号被忽略
	closing atomic.Bool

	sessionOnce sync.Once
	session     *ClientContext
}

func newConnection(endpoint string, sqsClient sqsAPI, snsClient snsAPI, cfg *Config, policy *retry.Policy) *Connection {
	return &Connection{
		endpoint: endpoint,
		sqs:      sqsClient,
		sns:      snsClient,
		payload: map[string]any{
			PayloadSettings:  cfg,
			PayloadEndpoints: append([]string(nil), cfg.Endpoints...),
		},
		cfg:    cfg,
		policy: policy,
		closed: make(chan error, 1),
	}
}

// Endpoint 返回端点描述
func (c *Connection) Endpoint() string { return c.endpoint }

// Payload 读取构造时附加的元数据
func (c *Connection) Payload(key string) (any, bool) {
	v, ok := c.payload[key]
	return v, ok
}

// Closed 返回非请求关闭信号通道
func (c *Connection) Closed() <-chan error { return c.closed }

// Close 主动关闭连接
//
// 主动关闭不触发 Closed 信号：非请求关闭与显式取消
// 必须可区分，监督器只对前者做故障重建。
func (c *Connection) Close() error {
	c.closing.Store(true)
	return nil
}

// fault 发出非请求关闭信号
//
// 会话在观察到连接级故障时调用；至多发出一次，
// 主动关闭之后的故障被忽略。
func (c *Connection) fault(err error) {
	if c.closing.Load() {
		return
	}
	c.faultOnce.Do(func() {
		c.faulted.Store(true)
		c.closed <- err
	})
}

// Faulted 报告连接是否已被非请求关闭作废
func (c *Connection) Faulted() bool {
	return c.faulted.Load()
}

// ClientContext 返回本连接上的会话（按连接惰性创建一次）
func (c *Connection) ClientContext() *ClientContext {
	c.sessionOnce.Do(func() {
		c.session = newClientContext(c)
	})
	return c.session
}

// ClientContextFor 从接口连接取回 SQS 会话
//
// 连接不是本传输创建时返回 false。
func ClientContextFor(conn pkgif.Connection) (*ClientContext, bool) {
	c, ok := conn.(*Connection)
	if !ok {
		return nil, false
	}
	return c.ClientContext(), true
}
