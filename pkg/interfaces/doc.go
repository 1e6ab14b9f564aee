// Package interfaces 定义 GPS 办公室网络的公共接口
//
// 组件之间只通过这些接口协作，本地实现、远程桩与测试替身可以互换：
//   - Office: 办公室门面（packetForward、createPacket、坐标、名称、addListener）
//   - Listener: 事件接收能力
//   - Directory / DirectoryListener: 目录服务与变更通知
//   - Dialer: 把可序列化句柄解析为可调用对象
package interfaces
