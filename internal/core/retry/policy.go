// Package retry 提供连接层使用的指数退避重试策略
//
// 策略是纯函数式的：给定错误决定"重试还是失败"，
// 给定尝试次数决定下一次延迟。延迟等待支持取消，
// 取消发生在等待期间时立即中止而不是等延迟结束。
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

// ============================================================================
//                              配置
// ============================================================================

// Config 重试策略配置
type Config struct {
	// MinInterval 首次重试前的最小延迟
	MinInterval time.Duration

	// IntervalStep 每次尝试增加的延迟步长
	IntervalStep time.Duration

	// MaxInterval 单次延迟上限
	MaxInterval time.Duration

	// MaxTotalWait 累计等待上限
	//
	// 累计延迟超过该值后放弃重试，返回最后一次错误。
	MaxTotalWait time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MinInterval:  100 * time.Millisecond,
		IntervalStep: 500 * time.Millisecond,
		MaxInterval:  10 * time.Second,
		MaxTotalWait: 2 * time.Minute,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MinInterval < 0 || c.IntervalStep < 0 {
		return ErrInvalidConfig
	}
	if c.MaxInterval < c.MinInterval {
		return ErrInvalidConfig
	}
	return nil
}

// ErrInvalidConfig 无效配置
var ErrInvalidConfig = errors.New("invalid retry config")

// ============================================================================
//                              策略
// ============================================================================

// Policy 指数退避重试策略
//
// 错误被划分为三类：
//   - 可重试：连接类瞬时故障，触发退避后重试
//   - 致命：认证失败与取消，立即向上传播
//   - 未分类：默认按可重试处理（由工厂包装为连接错误后再浮出）
type Policy struct {
	cfg *Config
}

// NewPolicy 创建策略
//
// cfg 为 nil 时使用默认配置。
func NewPolicy(cfg *Config) *Policy {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Policy{cfg: cfg}
}

// Config 返回策略配置
func (p *Policy) Config() *Config { return p.cfg }

// ShouldRetry 判断错误是否可重试
func (p *Policy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if types.IsAuthenticationError(err) {
		return false
	}
	// 连接错误与未分类错误都按可重试处理
	return true
}

// Delay 返回第 attempt 次（从 0 起）失败后的退避延迟
//
// 延迟从 MinInterval 起步，按 IntervalStep 线性增长，封顶 MaxInterval。
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.cfg.MinInterval + time.Duration(attempt)*p.cfg.IntervalStep
	if d > p.cfg.MaxInterval {
		d = p.cfg.MaxInterval
	}
	return d
}

// Exhausted 判断累计等待是否已超出上限
//
// MaxTotalWait 为 0 表示不设上限。
func (p *Policy) Exhausted(totalWaited time.Duration) bool {
	return p.cfg.MaxTotalWait > 0 && totalWaited >= p.cfg.MaxTotalWait
}

// Wait 等待第 attempt 次失败对应的退避延迟
//
// ctx 在等待期间取消时立即返回 ctx.Err()，不会等延迟结束。
// 返回实际等待的时长。
func (p *Policy) Wait(ctx context.Context, attempt int) (time.Duration, error) {
	d := p.Delay(attempt)
	if d <= 0 {
		return 0, ctx.Err()
	}

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	case <-timer.C:
		return d, nil
	}
}
