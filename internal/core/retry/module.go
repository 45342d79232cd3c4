package retry

import (
	"go.uber.org/fx"
)

// Module 重试策略 Fx 模块
var Module = fx.Module("retry",
	fx.Provide(
		providePolicy,
	),
)

// PolicyParams 策略依赖参数
type PolicyParams struct {
	fx.In

	Config *Config `optional:"true"`
}

// providePolicy 提供重试策略
func providePolicy(params PolicyParams) (*Policy, error) {
	cfg := params.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewPolicy(cfg), nil
}
