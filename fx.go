package masstransit

import (
	"context"

	"go.uber.org/fx"

	"github.com/Omsaaf/MassTransit/internal/core/retry"
	"github.com/Omsaaf/MassTransit/internal/core/scope"
	"github.com/Omsaaf/MassTransit/internal/core/supervisor"
	"github.com/Omsaaf/MassTransit/internal/core/transport/amazonsqs"
	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// Module 总线 Fx 模块
//
// 供嵌入 Fx 应用的调用方使用：提供重试策略、连接工厂、
// 监督器、作用域访问器与总线本身，并把总线生命周期挂到
// Fx 生命周期上。独立使用时直接调用 New，无需 Fx。
var Module = fx.Options(
	retry.Module,
	amazonsqs.Module,
	supervisor.Module,
	scope.Module,
	fx.Provide(provideBus),
	fx.Invoke(registerLifecycle),
)

// BusParams 总线依赖参数
type BusParams struct {
	fx.In

	Supervisor *supervisor.Supervisor
	Accessor   pkgif.ScopeAccessor
}

// provideBus 从已装配的组件提供总线
func provideBus(params BusParams) *Bus {
	b := &Bus{sup: params.Supervisor}
	b.resolver = scope.NewResolver(params.Accessor, b, b)
	return b
}

// registerLifecycle 把总线停止挂到 Fx 生命周期
func registerLifecycle(lc fx.Lifecycle, b *Bus) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return b.Stop(ctx)
		},
	})
}
