// Package types 定义 GPS 办公室网络的基础数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是值类型，用于在各模块间以及跨进程传递数据。
//
// # 文件组织
//
//   - geo.go       - Coordinate, Distance, Identity
//   - packet.go    - TrackingID, ListenerRef, Packet
//   - event.go     - EventKind, Event 及构造函数
//   - directory.go - Record, Filter, DirectoryEvent, Lease
package types
