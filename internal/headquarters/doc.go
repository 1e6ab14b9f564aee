// Package headquarters 实现总部观察者
//
// 总部订阅目录中办公室的绑定事件，把自己作为办公室级监听者注册到每个办公室
// （已存在的通过枚举，后加入的通过通知），并把收到的每条事件：
//   - 打印消息文本到输出
//   - 以 JSON 广播给 /ws 上的 websocket 客户端（Feed）
//   - 可选地发布到 MQTT 主题（MQTTSink）
package headquarters
