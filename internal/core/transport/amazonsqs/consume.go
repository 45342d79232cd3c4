package amazonsqs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
	"github.com/Omsaaf/MassTransit/pkg/types"
)

// ErrNilHandler 消息处理函数为空
var ErrNilHandler = errors.New("nil message handler")

// Consume 运行接收循环直至 ctx 取消
//
// 并发模型：任意时刻恰好一个轮询周期在途（防止重叠的轮询
// 请求饿死消息处理），周期内部的分批轮询与下游消息分发
// 各自并发。后端有响应的轮询失败（限流、服务端错误）不终止
// 循环：按重试策略退避后继续。连接级失败作废共享连接并
// 结束循环，由总线层在重建的连接上恢复消费。
// 取消信号触发时干净退出，返回 nil。
func (c *ClientContext) Consume(ctx context.Context, settings types.ReceiveSettings, handler pkgif.Handler) error {
	if handler == nil {
		return ErrNilHandler
	}
	queueURL, err := c.lookup(ctx, c.queues, settings.QueueName)
	if err != nil {
		return err
	}

	prefetch := settings.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	logger.Info("接收循环启动", "queue", settings.QueueName, "prefetch", prefetch)
	defer logger.Info("接收循环退出", "queue", settings.QueueName)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := c.pollBatch(ctx, queueURL, prefetch, settings.WaitTime)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// 共享连接已作废：交还调用方在新连接上重建循环
			if c.conn.Faulted() {
				logger.Warn("连接已作废，接收循环退出",
					"queue", settings.QueueName, "error", err)
				return err
			}
			logger.Warn("轮询失败，退避后继续",
				"queue", settings.QueueName, "attempt", attempt+1, "error", err)
			_, _ = c.policy.Wait(ctx, attempt)
			attempt++
			continue
		}
		attempt = 0

		if len(msgs) > 0 {
			c.dispatch(ctx, msgs, handler)
		}
	}
}

// pollBatch 一个轮询周期
//
// 单次轮询调用封顶 ReceiveBatchCap 条，预取数拆分为
// 若干满额轮询加一次余量轮询，并发发出后按序拼接结果。
func (c *ClientContext) pollBatch(ctx context.Context, queueURL string, prefetch int,
	waitTime time.Duration) ([]sqstypes.Message, error) {

	sizes := batchSizes(prefetch)
	results := make([][]sqstypes.Message, len(sizes))

	g, gctx := errgroup.WithContext(ctx)
	for i, size := range sizes {
		i, size := i, size
		g.Go(func() error {
			out, err := c.conn.sqs.ReceiveMessage(gctx, &sqs.ReceiveMessageInput{
				QueueUrl:              aws.String(queueURL),
				MaxNumberOfMessages:   int32(size),
				WaitTimeSeconds:       int32(waitTime / time.Second),
				MessageAttributeNames: []string{"All"},
				AttributeNames:        []sqstypes.QueueAttributeName{"All"},
			})
			if err != nil {
				return c.remoteErr("ReceiveMessage", err)
			}
			results[i] = out.Messages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var msgs []sqstypes.Message
	for _, r := range results {
		msgs = append(msgs, r...)
	}
	return msgs, nil
}

// batchSizes 把预取数拆分为单次轮询大小序列
//
// 例：25 → {10, 10, 5}。
func batchSizes(prefetch int) []int {
	full := prefetch / ReceiveBatchCap
	sizes := make([]int, 0, full+1)
	for i := 0; i < full; i++ {
		sizes = append(sizes, ReceiveBatchCap)
	}
	if rem := prefetch % ReceiveBatchCap; rem > 0 {
		sizes = append(sizes, rem)
	}
	return sizes
}

// dispatch 并发分发一批消息并等待全部处理完成
func (c *ClientContext) dispatch(ctx context.Context, msgs []sqstypes.Message, handler pkgif.Handler) {
	var wg sync.WaitGroup
	for _, m := range msgs {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := handler(ctx, toMessage(m)); err != nil {
				logger.Error("消息处理失败",
					"messageID", aws.ToString(m.MessageId), "error", err)
			}
		}()
	}
	wg.Wait()
}

// toMessage 转换原生消息
func toMessage(m sqstypes.Message) *types.Message {
	return &types.Message{
		MessageID:     aws.ToString(m.MessageId),
		Body:          []byte(aws.ToString(m.Body)),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		Attributes:    m.Attributes,
		Headers:       NewHeaderCarrier(m.MessageAttributes),
	}
}
