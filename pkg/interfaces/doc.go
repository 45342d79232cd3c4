// Package interfaces 定义 MassTransit 各层之间的能力接口
//
// 采用能力集接口（capability-set）划分：
//
//   - ConnectionFactory / Connection：传输层连接的构造与生命周期信号
//   - ClientContext：实体管理 + 收发消息的会话能力
//   - SendEndpoint / PublishEndpoint：最小发送能力
//   - ConsumeContext / ScopeAccessor：消息处理单元的环境作用域
//
// 每个后端作为变体实现，无共享基类。接口由本包定义，
// 实现位于 internal/core/transport/ 下的各传输包。
package interfaces
