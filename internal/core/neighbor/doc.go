// Package neighbor 实现有界邻居表
//
// 邻居表保存最多 K 个（默认 3）已知对等办公室的描述符，按到本办公室的距离
// 维护。所有变更与最近查询都在同一把互斥锁内完成，不向外暴露迭代器。
//
// # 替换策略
//
//   - FirstFit（默认）：表满时从前往后扫描（表按距离升序），替换第一个比候选者
//     更远的条目，每次调用至多替换一次。
//   - BestFit：表满时替换最远的条目，严格维持 K 近邻。
//
// FirstFit 下，候选列表按距离非降序到达时，FullResync 的结果恰为 K 近邻；
// 其他到达顺序下只是近似。
package neighbor
