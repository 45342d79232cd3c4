package amazonsqs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/lib/log"
)

var logger = log.Logger("transport/amazonsqs")

// Factory SQS/SNS 连接工厂
//
// 每次 Create 构造一条新连接并探测可达性；
// 原生失败被转换为已分类的传输错误，交由外层
// 重试策略决定重试或失败。
type Factory struct {
	cfg    *Config
	policy *retry.Policy
}

// NewFactory 创建连接工厂
//
// cfg 为 nil 时使用默认配置；policy 用于派生会话的
// 轮询失败退避，为 nil 时使用默认策略。
func NewFactory(cfg *Config, policy *retry.Policy) *Factory {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if policy == nil {
		policy = retry.NewPolicy(nil)
	}
	return &Factory{cfg: cfg, policy: policy}
}

// Create 建立一条连接
//
// 监督器已取消时立即失败（原样返回取消错误，不尝试连接）。
// 连接失败时释放部分构造的资源并返回已分类错误；
// 成功时把原始设置与端点拓扑附加为连接载荷。
func (f *Factory) Create(ctx context.Context) (pkgif.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endpoint := f.cfg.endpointDescription()
	logger.Debug("正在建立连接", "endpoint", endpoint, "region", f.cfg.Region)

	awsCfg, err := f.loadAWSConfig(ctx)
	if err != nil {
		return nil, classifyCreateError(ctx, endpoint, err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if len(f.cfg.Endpoints) > 0 {
			o.BaseEndpoint = aws.String(f.cfg.Endpoints[0])
		}
	})
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if len(f.cfg.Endpoints) > 0 {
			o.BaseEndpoint = aws.String(f.cfg.Endpoints[0])
		}
	})

	// 可达性探测：让认证/网络问题在创建阶段暴露，
	// 而不是推迟到第一次实体操作
	if _, err := sqsClient.ListQueues(ctx, &sqs.ListQueuesInput{
		MaxResults: aws.Int32(1),
	}); err != nil {
		// 客户端无需显式释放，丢弃即可
		return nil, classifyCreateError(ctx, endpoint, err)
	}

	conn := newConnection(endpoint, sqsClient, snsClient, f.cfg, f.policy)
	logger.Info("连接建立成功", "endpoint", endpoint)
	return conn, nil
}

// loadAWSConfig 组装 AWS 配置
//
// 提供静态凭证时直接使用；否则走默认凭证链。
func (f *Factory) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(f.cfg.Region),
	}
	if f.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				f.cfg.AccessKeyID, f.cfg.SecretAccessKey, f.cfg.SessionToken)))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
