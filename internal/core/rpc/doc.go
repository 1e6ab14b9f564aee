// Package rpc 提供基于 yamux 的请求/响应与服务端流式调用
//
// 每个 TCP 连接上运行一个 yamux 会话，每次调用占用一个独立的流：
//
//	客户端 → 服务端：uvarint 长度 + Envelope{method, payload}
//	服务端 → 客户端：uvarint 长度 + Envelope{payload} 或 Envelope{code, message}
//
// 流式调用在首个确认帧之后持续发送 Envelope{payload}，直到任一方关闭流。
//
// # 错误
//
//   - 拨号或会话失败：ErrUnreachable
//   - 超过 ctx 截止时间或 CallTimeout：ErrTimeout
//   - 远端处理器返回的错误：*Error，携带错误码；通过 RegisterError 注册的
//     哨兵错误在客户端仍满足 errors.Is
//
// 客户端按地址缓存会话（LRU，淘汰时关闭）；服务端可限制并发连接数与每秒调用数。
package rpc
