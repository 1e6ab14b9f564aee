// Package office 实现办公室节点
//
// Office 组合邻居表、办公室级事件中心、转发引擎与目录监视器，
// 对外实现 interfaces.Office（目录中以办公室名称绑定的就是它）。
//
// # 启动顺序
//
//  1. 订阅目录变更（绑定前订阅，不会错过并发加入的办公室）
//  2. 以 GPSOffice 类型绑定自身名称，失败即启动失败
//  3. 按目录当前枚举执行一次全量重同步
//  4. 开始接受包裹；此前到达的 PacketForward 等待就绪
//
// 停止时先解绑名称，再停止监视器，最后等待在途派发结束。
package office
