package amazonsqs

import (
	"context"
	"errors"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

// 认证类错误码：重试不可能成功，立即向上传播
var authErrorCodes = map[string]struct{}{
	"InvalidClientTokenId":        {},
	"UnrecognizedClientException": {},
	"AccessDenied":                {},
	"AccessDeniedException":       {},
	"SignatureDoesNotMatch":       {},
	"ExpiredToken":                {},
	"InvalidSecurityToken":        {},
	"MissingAuthenticationToken":  {},
}

// isAuthError 判断是否为认证失败
func isAuthError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := authErrorCodes[apiErr.ErrorCode()]
	return ok
}

// classifyCreateError 分类连接建立阶段的原生失败
//
// 取消原样传播；认证失败致命；其余一律视为可重试的连接错误，
// 未分类错误在浮出前也包装为连接错误。
func classifyCreateError(ctx context.Context, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isAuthError(err) {
		return &types.AuthenticationError{Err: err}
	}
	return &types.ConnectionError{Endpoint: endpoint, Err: err}
}

// classifyRemoteError 分类会话内远端调用的失败
//
// 收到 HTTP 响应的失败是后端响应错误（携带状态码与请求标识）；
// 没有响应的失败是连接层问题，按连接错误分类，
// 由调用方触发共享连接作废。
func classifyRemoteError(op, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isAuthError(err) {
		return &types.AuthenticationError{Err: err}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return &types.BackendResponseError{
			Operation:  op,
			StatusCode: respErr.HTTPStatusCode(),
			RequestID:  respErr.ServiceRequestID(),
			Err:        err,
		}
	}

	// 请求从未到达后端或没有拿到响应：连接层故障
	return &types.ConnectionError{Endpoint: endpoint, Err: err}
}
