// Package types 定义 MassTransit 的基础类型
//
// 包含实体描述、接收设置、消息载体以及公共错误分类。
// 本包不依赖任何传输实现，可被所有层安全引用。
package types
