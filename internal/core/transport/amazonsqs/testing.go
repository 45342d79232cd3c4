package amazonsqs

import (
	"context"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// 测试与自定义装配支持：绕过真实 AWS 配置链，直接注入客户端。

// SQSAPI 导出的 SQS 客户端子集（注入用）
type SQSAPI = sqsAPI

// SNSAPI 导出的 SNS 客户端子集（注入用）
type SNSAPI = snsAPI

// DialFunc 客户端拨号函数
//
// 每次连接创建调用一次；返回错误时按工厂错误分类规则处理。
type DialFunc func(ctx context.Context) (SQSAPI, SNSAPI, error)

// NewDialFactory 创建使用注入客户端的连接工厂
//
// 跳过凭证装配与可达性探测，其余连接语义（载荷、
// 关闭信号、会话派生）与标准工厂一致。
func NewDialFactory(cfg *Config, policy *retry.Policy, dial DialFunc) pkgif.ConnectionFactory {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if policy == nil {
		policy = retry.NewPolicy(nil)
	}
	return &dialFactory{cfg: cfg, policy: policy, dial: dial}
}

type dialFactory struct {
	cfg    *Config
	policy *retry.Policy
	dial   DialFunc
}

func (f *dialFactory) Create(ctx context.Context) (pkgif.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sqsClient, snsClient, err := f.dial(ctx)
	if err != nil {
		return nil, classifyCreateError(ctx, f.cfg.endpointDescription(), err)
	}
	return newConnection(f.cfg.endpointDescription(), sqsClient, snsClient, f.cfg, f.policy), nil
}
