// Package eventhub 实现多监听者事件中心
//
// Hub 持有一组带租约的监听者能力（interfaces.Listener），Publish 对每个监听者
// 独立投递：单个监听者失败只被记录，不影响其他监听者，也不向调用方返回错误。
//
// 每个转发中的包裹有一个只含客户监听者的 Hub；每个办公室另有一个生命周期
// 与进程相同、被所有包裹共享的 Hub，总部等观察者通过 addListener 加入。
//
// # 并发安全
//
//   - 订阅集合由互斥锁保护，Publish 在锁外对快照投递
//   - 同一次 Publish 内各监听者并行投递，Publish 等待全部完成后返回，
//     因此同一监听者看到的事件顺序与 Publish 调用顺序一致
//   - 连续失败达到 MaxFailures 的租约被撤销；过期租约在访问时清理
package eventhub
