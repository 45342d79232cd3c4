// Package amazonsqs 实现 Amazon SQS/SNS 传输
//
// 职责划分：
//
//   - Factory：构造原生连接（SQS + SNS 客户端），把原生失败
//     转换为已分类的传输错误
//   - Connection：一条共享连接；承载客户端、端点描述、
//     不可变元数据载荷与非请求关闭信号
//   - ClientContext：单连接会话；实体管理（创建/删除队列与主题、
//     订阅与发布授权）、消息收发、受限并发的轮询循环
//   - HeaderCarrier：在原生消息属性袋之上的统一键值头适配
//
// 实体语义：队列的远端标识是 Queue URL，主题的远端标识是
// Topic ARN。同一会话内实体名称到远端标识的解析恰好一次，
// 重复创建调用直接命中缓存。
package amazonsqs
