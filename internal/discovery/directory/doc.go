// Package directory 实现办公室目录服务
//
// Store 是一个内存中的名字注册表：办公室以唯一名字绑定 {Name, Type, Endpoint}
// 记录，其他参与者按名字查找、按类型列举，并订阅绑定/解绑通知。
//
// # 通知
//
// 每个订阅者拥有独立的缓冲通道与投递 goroutine，慢订阅者不会阻塞其他订阅者
// 或 Store 本身；缓冲满时事件被丢弃并记录日志。同一订阅者收到的事件顺序
// 与 Store 内状态变化顺序一致。
//
// # 租期
//
// 记录的 TTL > 0 时须在到期前 Renew；清理循环把过期记录解绑并发出 Unbound
// 通知，用于回收未解绑就退出的办公室。
package directory
