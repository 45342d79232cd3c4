package scope

import (
	"go.uber.org/fx"

	pkgif "github.com/Omsaaf/MassTransit/pkg/interfaces"
)

// AccessorOutput 访问器模块输出
type AccessorOutput struct {
	fx.Out

	Accessor      *Accessor
	ScopeAccessor pkgif.ScopeAccessor
}

// Module 作用域 Fx 模块
var Module = fx.Module("core/scope",
	fx.Provide(
		provideAccessor,
	),
)

// provideAccessor 提供作用域访问器
func provideAccessor() AccessorOutput {
	a := NewAccessor()
	return AccessorOutput{Accessor: a, ScopeAccessor: a}
}
