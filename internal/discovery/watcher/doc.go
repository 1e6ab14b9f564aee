// Package watcher 根据目录通知维护办公室的邻居表
//
// 绑定通知：查找记录、拨号、读取坐标后调用 InsertCandidate；解析失败或是自己
// 时跳过。解绑通知：RemoveByName 后从目录重新枚举并 FullResync，因为单次删除
// 无法找回此前因表满而被排除的更近候选者。
//
// 每条通知在独立 goroutine 中处理，不占用目录的投递 goroutine。全量重同步
// 互斥执行，候选者并行解析但按目录枚举顺序插入。可选的周期性重同步用于
// 修复乱序通知或瞬时目录故障留下的偏差。
package watcher
