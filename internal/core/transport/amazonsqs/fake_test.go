package amazonsqs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
)

// 进程内假后端：实现 sqsAPI / snsAPI 的最小语义，
// 记录调用并支持按序注入失败。

const (
	fakeAccount = "000000000000"
	fakeRegion  = "us-east-1"
)

// ============================================================================
//                              fakeSQS
// ============================================================================

type fakeQueue struct {
	name   string
	url    string
	arn    string
	policy string
	msgs   []sqstypes.Message
}

type fakeSQS struct {
	mu     sync.Mutex
	queues map[string]*fakeQueue // url → queue

	createCalls  int
	setAttrCalls int
	receiveSizes []int32

	failCreate  error
	failSend    error
	failReceive []error // 每次 ReceiveMessage 弹出一个
}

func newFakeSQS() *fakeSQS {
	return &fakeSQS{queues: make(map[string]*fakeQueue)}
}

func (f *fakeSQS) queueByURL(url string) (*fakeQueue, error) {
	q, ok := f.queues[url]
	if !ok {
		return nil, fmt.Errorf("NonExistentQueue: %s", url)
	}
	return q, nil
}

// addQueue 预置一个队列（绕过 CreateQueue 计数）
func (f *fakeSQS) addQueue(name string) *fakeQueue {
	q := &fakeQueue{
		name: name,
		url:  fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", fakeRegion, fakeAccount, name),
		arn:  fmt.Sprintf("arn:aws:sqs:%s:%s:%s", fakeRegion, fakeAccount, name),
	}
	f.queues[q.url] = q
	return q
}

func (f *fakeSQS) CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	name := aws.ToString(params.QueueName)
	for _, q := range f.queues {
		if q.name == name {
			return &sqs.CreateQueueOutput{QueueUrl: aws.String(q.url)}, nil
		}
	}
	q := f.addQueue(name)
	return &sqs.CreateQueueOutput{QueueUrl: aws.String(q.url)}, nil
}

func (f *fakeSQS) DeleteQueue(ctx context.Context, params *sqs.DeleteQueueInput, _ ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.queueByURL(aws.ToString(params.QueueUrl)); err != nil {
		return nil, err
	}
	delete(f.queues, aws.ToString(params.QueueUrl))
	return &sqs.DeleteQueueOutput{}, nil
}

func (f *fakeSQS) GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, err := f.queueByURL(aws.ToString(params.QueueUrl))
	if err != nil {
		return nil, err
	}
	attrs := map[string]string{
		string(sqstypes.QueueAttributeNameQueueArn): q.arn,
	}
	if q.policy != "" {
		attrs[string(sqstypes.QueueAttributeNamePolicy)] = q.policy
	}
	return &sqs.GetQueueAttributesOutput{Attributes: attrs}, nil
}

func (f *fakeSQS) SetQueueAttributes(ctx context.Context, params *sqs.SetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.SetQueueAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, err := f.queueByURL(aws.ToString(params.QueueUrl))
	if err != nil {
		return nil, err
	}
	f.setAttrCalls++
	if policy, ok := params.Attributes[string(sqstypes.QueueAttributeNamePolicy)]; ok {
		q.policy = policy
	}
	return &sqs.SetQueueAttributesOutput{}, nil
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return nil, f.failSend
	}
	q, err := f.queueByURL(aws.ToString(params.QueueUrl))
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	q.msgs = append(q.msgs, sqstypes.Message{
		MessageId:         aws.String(id),
		Body:              params.MessageBody,
		ReceiptHandle:     aws.String(uuid.NewString()),
		MessageAttributes: params.MessageAttributes,
	})
	return &sqs.SendMessageOutput{MessageId: aws.String(id)}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiveSizes = append(f.receiveSizes, params.MaxNumberOfMessages)
	if len(f.failReceive) > 0 {
		err := f.failReceive[0]
		f.failReceive = f.failReceive[1:]
		if err != nil {
			return nil, err
		}
	}
	q, err := f.queueByURL(aws.ToString(params.QueueUrl))
	if err != nil {
		return nil, err
	}
	n := int(params.MaxNumberOfMessages)
	if n > len(q.msgs) {
		n = len(q.msgs)
	}
	out := append([]sqstypes.Message(nil), q.msgs[:n]...)
	q.msgs = q.msgs[n:]
	return &sqs.ReceiveMessageOutput{Messages: out}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.queueByURL(aws.ToString(params.QueueUrl)); err != nil {
		return nil, err
	}
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) PurgeQueue(ctx context.Context, params *sqs.PurgeQueueInput, _ ...func(*sqs.Options)) (*sqs.PurgeQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, err := f.queueByURL(aws.ToString(params.QueueUrl))
	if err != nil {
		return nil, err
	}
	q.msgs = nil
	return &sqs.PurgeQueueOutput{}, nil
}

func (f *fakeSQS) ListQueues(ctx context.Context, params *sqs.ListQueuesInput, _ ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error) {
	return &sqs.ListQueuesOutput{}, nil
}

// ============================================================================
//                              fakeSNS
// ============================================================================

type fakeSNS struct {
	mu     sync.Mutex
	topics map[string]string // name → arn

	createCalls    int
	subscribeCalls int
	subscribeAttrs map[string]string
	published      []string
	publishedAttrs []map[string]snstypes.MessageAttributeValue

	failSubscribe error
	failPublish   error
}

func newFakeSNS() *fakeSNS {
	return &fakeSNS{topics: make(map[string]string)}
}

func (f *fakeSNS) CreateTopic(ctx context.Context, params *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	name := aws.ToString(params.Name)
	arn, ok := f.topics[name]
	if !ok {
		arn = fmt.Sprintf("arn:aws:sns:%s:%s:%s", fakeRegion, fakeAccount, name)
		f.topics[name] = arn
	}
	return &sns.CreateTopicOutput{TopicArn: aws.String(arn)}, nil
}

func (f *fakeSNS) DeleteTopic(ctx context.Context, params *sns.DeleteTopicInput, _ ...func(*sns.Options)) (*sns.DeleteTopicOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arn := aws.ToString(params.TopicArn)
	for name, a := range f.topics {
		if a == arn {
			delete(f.topics, name)
		}
	}
	return &sns.DeleteTopicOutput{}, nil
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish != nil {
		return nil, f.failPublish
	}
	f.published = append(f.published, aws.ToString(params.Message))
	f.publishedAttrs = append(f.publishedAttrs, params.MessageAttributes)
	return &sns.PublishOutput{MessageId: aws.String(uuid.NewString())}, nil
}

func (f *fakeSNS) Subscribe(ctx context.Context, params *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubscribe != nil {
		return nil, f.failSubscribe
	}
	f.subscribeCalls++
	f.subscribeAttrs = params.Attributes
	return &sns.SubscribeOutput{SubscriptionArn: aws.String(uuid.NewString())}, nil
}

// ============================================================================
//                              构造辅助
// ============================================================================

// newTestSession 构造接到假后端的会话
//
// 默认关闭沉降延迟，重试策略使用毫秒级退避。
func newTestSession(cfgFns ...func(*Config)) (*ClientContext, *fakeSQS, *fakeSNS) {
	cfg := DefaultConfig()
	cfg.EntitySettleDelay = 0
	for _, fn := range cfgFns {
		fn(cfg)
	}
	policy := retry.NewPolicy(&retry.Config{
		MinInterval:  time.Millisecond,
		IntervalStep: time.Millisecond,
		MaxInterval:  5 * time.Millisecond,
	})
	fsqs := newFakeSQS()
	fsns := newFakeSNS()
	conn := newConnection("fake://sqs", fsqs, fsns, cfg, policy)
	return conn.ClientContext(), fsqs, fsns
}
