package supervisor

import (
	"go.uber.org/fx"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// Module 连接监督器 Fx 模块
var Module = fx.Module("supervisor",
	fx.Provide(
		provideSupervisor,
	),
)

// Params 监督器依赖参数
type Params struct {
	fx.In

	Factory pkgif.ConnectionFactory
	Policy  *retry.Policy `optional:"true"`
}

// provideSupervisor 提供监督器
func provideSupervisor(params Params) (*Supervisor, error) {
	return New(params.Factory, params.Policy)
}
