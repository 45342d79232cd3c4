package amazonsqs

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Omsaaf/MassTransit/pkg/types"
)

var _ types.HeaderCarrier = (*HeaderCarrier)(nil)

// attributeTypeString SQS 消息属性的文本类型
const attributeTypeString = "String"

// HeaderCarrier 在原生消息属性袋之上的统一键值头适配
//
// 底层存储在首次 Set 时惰性初始化。读取时二进制编码的
// 属性值按 UTF-8 解码为文本返回，调用方永远观察不到
// 原始二进制头值。
type HeaderCarrier struct {
	attrs map[string]sqstypes.MessageAttributeValue
}

// NewHeaderCarrier 包装一个属性袋（可为 nil）
func NewHeaderCarrier(attrs map[string]sqstypes.MessageAttributeValue) *HeaderCarrier {
	return &HeaderCarrier{attrs: attrs}
}

// Set 写入一个头
func (h *HeaderCarrier) Set(key, value string) {
	if h.attrs == nil {
		h.attrs = make(map[string]sqstypes.MessageAttributeValue)
	}
	h.attrs[key] = sqstypes.MessageAttributeValue{
		DataType:    aws.String(attributeTypeString),
		StringValue: aws.String(value),
	}
}

// TryGet 读取一个头
//
// 二进制值按 UTF-8 解码；键不存在时返回 found=false。
func (h *HeaderCarrier) TryGet(key string) (value string, found bool) {
	attr, ok := h.attrs[key]
	if !ok {
		return "", false
	}
	return decodeAttribute(attr), true
}

// Each 遍历全部头
//
// 有限、单趟；每次调用重新遍历，可重复迭代。
func (h *HeaderCarrier) Each(fn func(key, value string)) {
	for k, attr := range h.attrs {
		fn(k, decodeAttribute(attr))
	}
}

// Attributes 返回底层属性袋（随出站消息发送时使用）
func (h *HeaderCarrier) Attributes() map[string]sqstypes.MessageAttributeValue {
	return h.attrs
}

func decodeAttribute(attr sqstypes.MessageAttributeValue) string {
	if attr.StringValue != nil {
		return aws.ToString(attr.StringValue)
	}
	// 固定文本编码：二进制值按 UTF-8 解码
	return string(attr.BinaryValue)
}
