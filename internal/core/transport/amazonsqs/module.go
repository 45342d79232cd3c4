package amazonsqs

import (
	"go.uber.org/fx"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// FactoryOutput 工厂模块输出
type FactoryOutput struct {
	fx.Out

	Factory           *Factory
	ConnectionFactory pkgif.ConnectionFactory
}

// Module Amazon SQS 传输 Fx 模块
var Module = fx.Module("transport/amazonsqs",
	fx.Provide(
		provideFactory,
	),
)

// FactoryParams 工厂依赖参数
type FactoryParams struct {
	fx.In

	Config *Config       `optional:"true"`
	Policy *retry.Policy `optional:"true"`
}

// provideFactory 提供连接工厂
func provideFactory(params FactoryParams) FactoryOutput {
	f := NewFactory(params.Config, params.Policy)
	return FactoryOutput{Factory: f, ConnectionFactory: f}
}
