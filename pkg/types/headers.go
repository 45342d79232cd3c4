package types

// HeaderCarrier 统一键值头访问
//
// 在各后端原生属性袋之上的统一适配：读取时二进制编码的
// 头值按 UTF-8 解码为文本，调用方永远观察不到原始二进制值。
// Each 的遍历有限、单趟，且可重复发起。
type HeaderCarrier interface {
	// Set 写入一个头
	Set(key, value string)

	// TryGet 读取一个头
	//
	// 键不存在时返回 found=false。
	TryGet(key string) (value string, found bool)

	// Each 遍历全部头
	Each(fn func(key, value string))
}

// Header 一条出站消息头
//
// 发送与发布操作接受可变数量的头，由传输层转换为
// 后端原生消息属性。
type Header struct {
	Key   string
	Value string
}
