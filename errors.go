package masstransit

import (
	"github.com/Omsaaf/MassTransit/internal/core/supervisor"
	"github.com/Omsaaf/MassTransit/pkg/types"
)

// 公共错误定义
//
// 错误分类谓词从 pkg/types 重导出，调用方无需直接依赖内部包。
var (
	// ErrStopped 总线已停止
	//
	// 停止是终态：停止后的所有连接请求都返回此错误。
	ErrStopped = supervisor.ErrStopped

	// ErrEmptyEntityName 实体名称为空
	ErrEmptyEntityName = types.ErrEmptyEntityName

	// ErrEmptyDestination 发送目标为空
	ErrEmptyDestination = types.ErrEmptyDestination
)

// IsConnectionError 判断是否为可重试的连接错误
func IsConnectionError(err error) bool { return types.IsConnectionError(err) }

// IsAuthenticationError 判断是否为致命的认证错误
func IsAuthenticationError(err error) bool { return types.IsAuthenticationError(err) }

// IsUnknownEntityError 判断是否为未解析实体错误
func IsUnknownEntityError(err error) bool { return types.IsUnknownEntityError(err) }
