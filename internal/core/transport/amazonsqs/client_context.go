package amazonsqs

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	"github.com/Omsaaf/MassTransit/pkg/types"
)

// entityEntry 实体缓存条目
//
// 条目在创建调用发出前登记，done 关闭时结果可用。
// 同名并发调用等待同一条目，保证远端创建路径
// 每名称每会话至多走一次。
type entityEntry struct {
	done chan struct{}
	id   string
	err  error
}

// ClientContext 单连接上的 SQS/SNS 会话
//
// 持有两个实体标识缓存（队列名 → Queue URL、主题名 → Topic ARN），
// 由单锁保护：创建与查找必须一起原子。会话生命周期不超过
// 其所属连接。
type ClientContext struct {
	conn   *Connection
	cfg    *Config
	policy *retry.Policy

	mu     sync.Mutex
	queues map[string]*entityEntry
	topics map[string]*entityEntry
}

func newClientContext(conn *Connection) *ClientContext {
	return &ClientContext{
		conn:   conn,
		cfg:    conn.cfg,
		policy: conn.policy,
		queues: make(map[string]*entityEntry),
		topics: make(map[string]*entityEntry),
	}
}

// ============================================================================
//                              实体解析
// ============================================================================

// EnsureQueue 确保队列存在并返回 Queue URL
func (c *ClientContext) EnsureQueue(ctx context.Context, queue *types.QueueInfo) (string, error) {
	if queue == nil || queue.Name == "" {
		return "", types.ErrEmptyEntityName
	}
	return c.ensure(ctx, c.queues, queue.Name, func(ctx context.Context) (string, error) {
		return c.createQueue(ctx, queue)
	})
}

// EnsureTopic 确保主题存在并返回 Topic ARN
func (c *ClientContext) EnsureTopic(ctx context.Context, topic *types.TopicInfo) (string, error) {
	if topic == nil || topic.Name == "" {
		return "", types.ErrEmptyEntityName
	}
	return c.ensure(ctx, c.topics, topic.Name, func(ctx context.Context) (string, error) {
		return c.createTopic(ctx, topic)
	})
}

// ensure 名称到远端标识的幂等解析
//
// 命中已解析条目时直接返回缓存结果；存在在途创建时等待其结果；
// 否则登记条目并发起远端创建，成功后先沉降再公布结果。
// 创建失败的条目被移除，后续调用可重新尝试。
func (c *ClientContext) ensure(ctx context.Context, cache map[string]*entityEntry, name string,
	create func(ctx context.Context) (string, error)) (string, error) {

	c.mu.Lock()
	if e, ok := cache[name]; ok {
		c.mu.Unlock()
		select {
		case <-e.done:
			return e.id, e.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	e := &entityEntry{done: make(chan struct{})}
	cache[name] = e
	c.mu.Unlock()

	id, err := create(ctx)
	if err != nil {
		c.mu.Lock()
		delete(cache, name)
		c.mu.Unlock()
		e.err = err
		close(e.done)
		return "", err
	}

	e.id = id

	// 远端实体创建是最终一致的：公布结果前先沉降，
	// 等待期间的取消只是跳过剩余延迟
	c.settle(ctx)

	close(e.done)
	return id, nil
}

// settle 实体创建后的沉降延迟
func (c *ClientContext) settle(ctx context.Context) {
	if c.cfg.EntitySettleDelay <= 0 {
		return
	}
	timer := time.NewTimer(c.cfg.EntitySettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// lookup 取回已解析的实体标识
//
// 名称从未在本会话内创建时返回 *types.UnknownEntityError
// （使用错误而非网络错误）；存在在途创建时等待其完成，
// 创建失败时浮出原始失败原因而不是未知实体。
func (c *ClientContext) lookup(ctx context.Context, cache map[string]*entityEntry, name string) (string, error) {
	c.mu.Lock()
	e, ok := cache[name]
	c.mu.Unlock()
	if !ok {
		return "", &types.UnknownEntityError{Name: name}
	}
	select {
	case <-e.done:
		if e.err != nil {
			return "", e.err
		}
		return e.id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// createQueue 发出远端队列创建调用
func (c *ClientContext) createQueue(ctx context.Context, queue *types.QueueInfo) (string, error) {
	out, err := c.conn.sqs.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(queue.Name),
		Attributes: queue.Attributes,
		Tags:       queue.Tags,
	})
	if err != nil {
		return "", c.remoteErr("CreateQueue", err)
	}
	logger.Debug("队列已创建", "name", queue.Name, "url", aws.ToString(out.QueueUrl))
	return aws.ToString(out.QueueUrl), nil
}

// createTopic 发出远端主题创建调用
func (c *ClientContext) createTopic(ctx context.Context, topic *types.TopicInfo) (string, error) {
	out, err := c.conn.sns.CreateTopic(ctx, &sns.CreateTopicInput{
		Name:       aws.String(topic.Name),
		Attributes: topic.Attributes,
		Tags:       tagList(topic.Tags),
	})
	if err != nil {
		return "", c.remoteErr("CreateTopic", err)
	}
	logger.Debug("主题已创建", "name", topic.Name, "arn", aws.ToString(out.TopicArn))
	return aws.ToString(out.TopicArn), nil
}

func tagList(tags map[string]string) []snstypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]snstypes.Tag, 0, len(tags))
	for k, v := range tags {
		out = append(out, snstypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

// ============================================================================
//                              实体删除
// ============================================================================

// DeleteQueue 删除队列
//
// 先解析标识（必要时创建），删除成功后移除缓存条目。
func (c *ClientContext) DeleteQueue(ctx context.Context, queue *types.QueueInfo) error {
	queueURL, err := c.EnsureQueue(ctx, queue)
	if err != nil {
		return err
	}
	if _, err := c.conn.sqs.DeleteQueue(ctx, &sqs.DeleteQueueInput{
		QueueUrl: aws.String(queueURL),
	}); err != nil {
		return c.remoteErr("DeleteQueue", err)
	}

	c.mu.Lock()
	delete(c.queues, queue.Name)
	c.mu.Unlock()
	logger.Debug("队列已删除", "name", queue.Name)
	return nil
}

// DeleteTopic 删除主题
func (c *ClientContext) DeleteTopic(ctx context.Context, topic *types.TopicInfo) error {
	topicARN, err := c.EnsureTopic(ctx, topic)
	if err != nil {
		return err
	}
	if _, err := c.conn.sns.DeleteTopic(ctx, &sns.DeleteTopicInput{
		TopicArn: aws.String(topicARN),
	}); err != nil {
		return c.remoteErr("DeleteTopic", err)
	}

	c.mu.Lock()
	delete(c.topics, topic.Name)
	c.mu.Unlock()
	logger.Debug("主题已删除", "name", topic.Name)
	return nil
}

// ============================================================================
//                              消息收发
// ============================================================================

// Send 向队列发送消息
//
// headers 经头适配转换为原生消息属性随消息送达。
func (c *ClientContext) Send(ctx context.Context, queueID string, body []byte, headers ...types.Header) error {
	if queueID == "" {
		return types.ErrEmptyDestination
	}
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueID),
		MessageBody: aws.String(string(body)),
	}
	if len(headers) > 0 {
		carrier := NewHeaderCarrier(nil)
		for _, h := range headers {
			carrier.Set(h.Key, h.Value)
		}
		in.MessageAttributes = carrier.Attributes()
	}
	if _, err := c.conn.sqs.SendMessage(ctx, in); err != nil {
		return c.remoteErr("SendMessage", err)
	}
	return nil
}

// Publish 向主题发布消息
func (c *ClientContext) Publish(ctx context.Context, topicID string, body []byte, headers ...types.Header) error {
	if topicID == "" {
		return types.ErrEmptyDestination
	}
	in := &sns.PublishInput{
		TopicArn: aws.String(topicID),
		Message:  aws.String(string(body)),
	}
	if len(headers) > 0 {
		attrs := make(map[string]snstypes.MessageAttributeValue, len(headers))
		for _, h := range headers {
			attrs[h.Key] = snstypes.MessageAttributeValue{
				DataType:    aws.String(attributeTypeString),
				StringValue: aws.String(h.Value),
			}
		}
		in.MessageAttributes = attrs
	}
	if _, err := c.conn.sns.Publish(ctx, in); err != nil {
		return c.remoteErr("Publish", err)
	}
	return nil
}

// DeleteMessage 按回执令牌删除消息
func (c *ClientContext) DeleteMessage(ctx context.Context, queueName, receiptHandle string) error {
	queueURL, err := c.lookup(ctx, c.queues, queueName)
	if err != nil {
		return err
	}
	if _, err := c.conn.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	}); err != nil {
		return c.remoteErr("DeleteMessage", err)
	}
	return nil
}

// Purge 清空队列
func (c *ClientContext) Purge(ctx context.Context, queueName string) error {
	queueURL, err := c.lookup(ctx, c.queues, queueName)
	if err != nil {
		return err
	}
	if _, err := c.conn.sqs.PurgeQueue(ctx, &sqs.PurgeQueueInput{
		QueueUrl: aws.String(queueURL),
	}); err != nil {
		return c.remoteErr("PurgeQueue", err)
	}
	return nil
}

// ============================================================================
//                              错误处理
// ============================================================================

// remoteErr 分类远端调用失败，连接级故障同时作废共享连接
//
// 实体管理与消息错误直接浮给调用方（本层之上不做隐式重试）；
// 连接错误额外触发监督器级作废，下一次请求重建连接。
func (c *ClientContext) remoteErr(op string, err error) error {
	classified := classifyRemoteError(op, c.conn.endpoint, err)
	if types.IsConnectionError(classified) {
		c.conn.fault(classified)
	}
	return classified
}
