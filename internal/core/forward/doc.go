// Package forward 实现贪心地理转发引擎
//
// Engine.Forward 处理一次入站包裹：
//
//  1. 建立本跳的事件扇出会话（包裹的客户监听者 + 办公室级 Hub）
//  2. 同步发出 Arrived
//  3. 阻塞处理延迟（不可取消）
//  4. 查询邻居表 ClosestTo(destination)
//  5. 自己最近：发出 Delivered，结束
//  6. 否则发出 Departed，并在后台 goroutine 中调用邻居的 PacketForward；
//     调用失败时发出 Lost(邻居名)，不重试，不向任何调用方返回错误
//
// Departed 在派发下一跳之前发出，因此客户先看到本跳的 Departed，
// 再看到下一跳的 Arrived。
package forward
