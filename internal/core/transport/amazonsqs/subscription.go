package amazonsqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

// CreateSubscription 建立主题到队列的订阅
//
// 步骤：
//  1. 并发解析主题与队列的远端标识（必要时创建）
//  2. 读取队列属性取得其 ARN 与现有访问策略
//  3. 合并主题级与队列级订阅属性（冲突时队列级覆盖）
//  4. 发出订阅调用
//  5. 幂等授予主题向队列发送的权限：已有语句覆盖时不追加
//
// 重复调用对同一 (主题, 队列) 对只产生一条授权语句。
func (c *ClientContext) CreateSubscription(ctx context.Context, topic *types.TopicInfo, queue *types.QueueInfo) error {
	if topic == nil || queue == nil {
		return types.ErrEmptyEntityName
	}

	var topicARN, queueURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		topicARN, err = c.EnsureTopic(gctx, topic)
		return err
	})
	g.Go(func() error {
		var err error
		queueURL, err = c.EnsureQueue(gctx, queue)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	attrs, err := c.queueAttributes(ctx, queueURL,
		sqstypes.QueueAttributeNameQueueArn, sqstypes.QueueAttributeNamePolicy)
	if err != nil {
		return err
	}
	queueARN := attrs[string(sqstypes.QueueAttributeNameQueueArn)]
	if queueARN == "" {
		return fmt.Errorf("queue %q: missing QueueArn attribute", queue.Name)
	}

	subAttrs := mergeSubscriptionAttributes(topic.SubscriptionAttributes, queue.SubscriptionAttributes)
	if _, err := c.conn.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Protocol:              aws.String("sqs"),
		Endpoint:              aws.String(queueARN),
		Attributes:            subAttrs,
		ReturnSubscriptionArn: true,
	}); err != nil {
		return c.remoteErr("Subscribe", err)
	}

	changed, updated, err := grantSendPermission(
		attrs[string(sqstypes.QueueAttributeNamePolicy)], queueARN, topicARN)
	if err != nil {
		return err
	}
	if !changed {
		logger.Debug("发布授权已存在，跳过", "topic", topic.Name, "queue", queue.Name)
		return nil
	}

	if _, err := c.conn.sqs.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl:   aws.String(queueURL),
		Attributes: map[string]string{string(sqstypes.QueueAttributeNamePolicy): updated},
	}); err != nil {
		return c.remoteErr("SetQueueAttributes", err)
	}

	logger.Info("订阅已建立", "topic", topic.Name, "queue", queue.Name)
	return nil
}

// queueAttributes 读取队列属性
func (c *ClientContext) queueAttributes(ctx context.Context, queueURL string,
	names ...sqstypes.QueueAttributeName) (map[string]string, error) {

	out, err := c.conn.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: names,
	})
	if err != nil {
		return nil, c.remoteErr("GetQueueAttributes", err)
	}
	return out.Attributes, nil
}

// mergeSubscriptionAttributes 合并订阅属性，冲突时队列级覆盖主题级
func mergeSubscriptionAttributes(topicLevel, queueLevel map[string]string) map[string]string {
	if len(topicLevel) == 0 && len(queueLevel) == 0 {
		return nil
	}
	merged := make(map[string]string, len(topicLevel)+len(queueLevel))
	for k, v := range topicLevel {
		merged[k] = v
	}
	for k, v := range queueLevel {
		merged[k] = v
	}
	return merged
}
