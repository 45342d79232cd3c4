package supervisor

import "errors"

var (
	// ErrStopped 监督器已停止
	//
	// 终态错误：停止后的监督器不再重建连接，
	// 所有依赖操作快速失败而不是挂起。
	ErrStopped = errors.New("connection supervisor stopped")

	// ErrNilFactory 连接工厂为空
	ErrNilFactory = errors.New("nil connection factory")
)
