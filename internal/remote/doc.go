// Package remote 在 rpc 之上提供办公室、监听者与目录的服务绑定和客户端桩
//
// 绑定（Serve*）把本地对象注册到 rpc.Server；桩（*Stub）实现对应的
// pkg/interfaces 接口，使远程句柄与本地对象可以互换。
//
// # 方法
//
//	office.packetForward   Packet            → 空
//	office.createPacket    CreatePacket      → String(tracking_id)
//	office.coordinate      空                → Coordinate
//	office.name            空                → String
//	office.addListener     ListenerRef       → Lease
//	listener.notify        Notify            → 空
//	directory.bind         Record            → 空
//	directory.renew        String(name)      → 空
//	directory.unbind       String(name)      → 空
//	directory.lookup       String(name)      → Record
//	directory.list         String(type)      → Strings
//	directory.watch        Filter            ⇒ 空帧(就绪) 然后 DirectoryEvent...
//
// 一个进程只需一个 rpc.Server：办公室绑定一个 Office，同一地址上的
// ListenerRegistry 按 ListenerRef.ID 多路复用任意多个监听者。
package remote
