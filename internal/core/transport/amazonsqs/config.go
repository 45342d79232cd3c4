package amazonsqs

import "time"

// ReceiveBatchCap 单次轮询调用的消息数上限
//
// SQS 固定限制：一次 ReceiveMessage 至多返回 10 条。
// 预取数超过该值时拆分为多次并发轮询。
const ReceiveBatchCap = 10

// DefaultEntitySettleDelay 实体创建后的默认沉降延迟
//
// SQS/SNS 的实体创建是最终一致的：创建调用返回后立即使用
// 可能失败。目标后端具备强一致实体创建时可将该值配置为 0。
const DefaultEntitySettleDelay = 500 * time.Millisecond

// Config 传输配置
type Config struct {
	// Region AWS 区域
	Region string

	// AccessKeyID / SecretAccessKey / SessionToken 静态凭证
	//
	// AccessKeyID 为空时走默认凭证链（环境变量、共享配置等）。
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Endpoints 自定义端点列表
	//
	// 为空时使用 AWS 默认端点解析。配置多个成员时完整列表
	// 附加到连接载荷，由底层客户端负责故障转移；本层不做
	// 成员选择重试（那是外层重试策略的职责）。
	Endpoints []string

	// EntitySettleDelay 实体创建后的沉降延迟
	EntitySettleDelay time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Region:            "us-east-1",
		EntitySettleDelay: DefaultEntitySettleDelay,
	}
}

// endpointDescription 返回端点描述（日志与错误信息使用）
func (c *Config) endpointDescription() string {
	if len(c.Endpoints) > 0 {
		return c.Endpoints[0]
	}
	return "sqs." + c.Region + ".amazonaws.com"
}
