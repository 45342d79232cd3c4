package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误分类
//
// 五类错误（见各类型注释）：
//   - ConnectionError     可重试（网络/服务端不可达）
//   - AuthenticationError 致命，永不重试
//   - context.Canceled    原样传播，永不包装
//   - UnknownEntityError  调用方使用错误（引用了会话内未创建的实体）
//   - BackendResponseError 远端调用返回非成功状态
// ============================================================================

var (
	// ErrEmptyEntityName 实体名称为空
	ErrEmptyEntityName = errors.New("empty entity name")

	// ErrEmptyDestination 目标标识为空
	ErrEmptyDestination = errors.New("empty destination")
)

// ConnectionError 连接错误
//
// 表示到消息服务端的连接建立或使用失败，属于可重试类别。
type ConnectionError struct {
	// Endpoint 目标端点描述
	Endpoint string

	// Err 原生错误
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("connection failed: %v", e.Err)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap 返回原生错误
func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError 认证错误
//
// 凭证无效或权限不足，属于致命类别：重试不可能成功，立即向上传播。
type AuthenticationError struct {
	// Err 原生错误
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

// Unwrap 返回原生错误
func (e *AuthenticationError) Unwrap() error { return e.Err }

// UnknownEntityError 未知实体错误
//
// 调用方引用了会话内从未创建的实体名称。
// 这是使用错误而非网络错误，不参与任何重试。
type UnknownEntityError struct {
	// Name 实体逻辑名称
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity: %q was never created in this session", e.Name)
}

// BackendResponseError 后端响应错误
//
// 远端调用返回非成功状态；携带状态码与后端请求标识，便于排查。
type BackendResponseError struct {
	// Operation 失败的操作名称
	Operation string

	// StatusCode HTTP 状态码（未知时为 0）
	StatusCode int

	// RequestID 后端请求标识（可能为空）
	RequestID string

	// Err 原生错误
	Err error
}

func (e *BackendResponseError) Error() string {
	return fmt.Sprintf("%s failed: status=%d requestID=%s: %v",
		e.Operation, e.StatusCode, e.RequestID, e.Err)
}

// Unwrap 返回原生错误
func (e *BackendResponseError) Unwrap() error { return e.Err }

// ============================================================================
//                              分类辅助
// ============================================================================

// IsConnectionError 判断是否为连接错误
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsAuthenticationError 判断是否为认证错误
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsUnknownEntityError 判断是否为未知实体错误
func IsUnknownEntityError(err error) bool {
	var ue *UnknownEntityError
	return errors.As(err, &ue)
}
