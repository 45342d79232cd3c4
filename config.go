package masstransit

import (
	"encoding/json"
	"time"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
)

// UserConfig 用户配置结构
//
// 面向用户的简化配置，可以从 JSON 文件加载后转换为选项。
// 配置文件的读取和环境变量的处理应由应用层负责，
// 库本身不负责 I/O 操作。示例用法：
//
//	data, _ := os.ReadFile("config.json")
//	var cfg masstransit.UserConfig
//	json.Unmarshal(data, &cfg)
//	bus, _ := masstransit.New(cfg.ToOptions()...)
type UserConfig struct {
	// Region AWS 区域
	Region string `json:"region,omitempty"`

	// Credentials 静态凭证（不设置时走默认凭证链）
	Credentials *CredentialsConfig `json:"credentials,omitempty"`

	// Endpoints 自定义端点列表
	Endpoints []string `json:"endpoints,omitempty"`

	// Retry 连接重试配置
	Retry *RetryConfig `json:"retry,omitempty"`

	// EntitySettleDelayMS 实体创建后的沉降延迟（毫秒）
	EntitySettleDelayMS *int `json:"entity_settle_delay_ms,omitempty"`
}

// CredentialsConfig 静态凭证配置
type CredentialsConfig struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
}

// RetryConfig 重试配置（时间单位均为毫秒）
type RetryConfig struct {
	MinIntervalMS  int `json:"min_interval_ms,omitempty"`
	IntervalStepMS int `json:"interval_step_ms,omitempty"`
	MaxIntervalMS  int `json:"max_interval_ms,omitempty"`
	MaxTotalWaitMS int `json:"max_total_wait_ms,omitempty"`
}

// ToOptions 转换为选项列表
func (c *UserConfig) ToOptions() []Option {
	var opts []Option

	if c.Region != "" {
		opts = append(opts, WithRegion(c.Region))
	}
	if c.Credentials != nil {
		opts = append(opts, WithStaticCredentials(
			c.Credentials.AccessKeyID, c.Credentials.SecretAccessKey, c.Credentials.SessionToken))
	}
	if len(c.Endpoints) > 0 {
		opts = append(opts, WithEndpoints(c.Endpoints...))
	}
	if c.Retry != nil {
		rc := retry.DefaultConfig()
		if c.Retry.MinIntervalMS > 0 {
			rc.MinInterval = time.Duration(c.Retry.MinIntervalMS) * time.Millisecond
		}
		if c.Retry.IntervalStepMS > 0 {
			rc.IntervalStep = time.Duration(c.Retry.IntervalStepMS) * time.Millisecond
		}
		if c.Retry.MaxIntervalMS > 0 {
			rc.MaxInterval = time.Duration(c.Retry.MaxIntervalMS) * time.Millisecond
		}
		if c.Retry.MaxTotalWaitMS > 0 {
			rc.MaxTotalWait = time.Duration(c.Retry.MaxTotalWaitMS) * time.Millisecond
		}
		opts = append(opts, WithRetry(rc))
	}
	if c.EntitySettleDelayMS != nil {
		opts = append(opts, WithEntitySettleDelay(
			time.Duration(*c.EntitySettleDelayMS)*time.Millisecond))
	}
	return opts
}

// ParseUserConfig 从 JSON 数据解析用户配置
func ParseUserConfig(data []byte) (*UserConfig, error) {
	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
