package masstransit

import (
	"fmt"
	"time"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	"github.com/Omsaaf/MassTransit/internal/core/transport/amazonsqs"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 传输配置
	transport *amazonsqs.Config

	// 重试策略配置
	retry *retry.Config

	// 自定义连接工厂（覆盖默认 SQS/SNS 工厂）
	factory pkgif.ConnectionFactory
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		transport: amazonsqs.DefaultConfig(),
		retry:     retry.DefaultConfig(),
	}
}

// WithRegion 设置 AWS 区域
func WithRegion(region string) Option {
	return func(o *options) error {
		if region == "" {
			return fmt.Errorf("region must not be empty")
		}
		o.transport.Region = region
		return nil
	}
}

// WithStaticCredentials 设置静态凭证
//
// 不设置时使用默认凭证链（环境变量、共享配置文件、实例角色）。
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return fmt.Errorf("static credentials require access key id and secret")
		}
		o.transport.AccessKeyID = accessKeyID
		o.transport.SecretAccessKey = secretAccessKey
		o.transport.SessionToken = sessionToken
		return nil
	}
}

// WithEndpoints 设置服务端点列表
//
// 首个端点用于建立连接，完整列表作为连接载荷保留
// （本地开发时指向 LocalStack 等模拟端点）。
func WithEndpoints(endpoints ...string) Option {
	return func(o *options) error {
		if len(endpoints) == 0 {
			return fmt.Errorf("at least one endpoint required")
		}
		o.transport.Endpoints = append([]string(nil), endpoints...)
		return nil
	}
}

// WithRetry 设置连接重试策略
func WithRetry(cfg *retry.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("retry config must not be nil")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.retry = cfg
		return nil
	}
}

// WithConnectionFactory 注入自定义连接工厂
//
// 覆盖默认的 SQS/SNS 工厂；用于自定义客户端装配与测试注入。
// 设置后传输配置选项（区域、凭证、端点）不再生效。
func WithConnectionFactory(factory pkgif.ConnectionFactory) Option {
	return func(o *options) error {
		if factory == nil {
			return fmt.Errorf("connection factory must not be nil")
		}
		o.factory = factory
		return nil
	}
}

// WithEntitySettleDelay 设置实体创建后的沉降延迟
//
// 远端实体创建后等待这段时间再对调用方可见，
// 吸收后端的最终一致窗口。0 表示不等待。
func WithEntitySettleDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("settle delay must not be negative")
		}
		o.transport.EntitySettleDelay = d
		return nil
	}
}
