// Package wire 定义跨进程消息的编码
//
// 所有消息使用 protobuf 线格式（google.golang.org/protobuf/encoding/protowire）
// 手工编解码，不依赖生成代码。解码时忽略未知字段，字段号一经分配不再复用。
//
// 字段分配：
//
//	Envelope       1 method  2 payload  3 code  4 message
//	Coordinate     1 x(double)  2 y(double)
//	ListenerRef    1 endpoint  2 id
//	Packet         1 tracking_id  2 destination(Coordinate)  3 created_at(unix ns)  4 listener(ListenerRef)
//	Event          1 kind  2 tracking_id  3 office  4 message  5 destination(Coordinate)  6 timestamp(unix ns)
//	Record         1 name  2 type  3 endpoint  4 ttl(ns)
//	Filter         1 type  2 bound  3 unbound
//	DirectoryEvent 1 name  2 type  3 bound
//	Lease          1 id  2 expires_at(unix ns)
//	CreatePacket   1 destination(Coordinate)  2 customer(ListenerRef)
//	Notify         1 listener_id  2 event(Event)
//	String         1 value
//	Strings        1 values(repeated)
package wire
