package headquarters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ErrMQTTTimeout broker 操作超时
var ErrMQTTTimeout = errors.New("headquarters: mqtt timeout")

// MQTTConfig MQTT 输出配置
type MQTTConfig struct {
	// Broker 如 tcp://localhost:1883
	Broker string

	// Topic 主题前缀，事件发布到 <Topic>/<office>
	Topic string

	// ClientID 客户端 ID
	ClientID string

	// QoS 发布 QoS
	QoS byte

	// Timeout 连接与发布的超时
	Timeout time.Duration
}

// publisher paho 客户端中用到的部分
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink 把事件以 JSON 发布到 MQTT 主题
type MQTTSink struct {
	config MQTTConfig
	client publisher
}

var _ Sink = (*MQTTSink)(nil)

// NewMQTTSink 连接 broker
func NewMQTTSink(config MQTTConfig) (*MQTTSink, error) {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetConnectTimeout(config.Timeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("%w: connect %s", ErrMQTTTimeout, config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("headquarters: mqtt connect %s: %w", config.Broker, err)
	}

	logger.Info("已连接 MQTT broker", "broker", config.Broker, "topic", config.Topic)
	return newMQTTSink(config, client), nil
}

func newMQTTSink(config MQTTConfig, client publisher) *MQTTSink {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &MQTTSink{config: config, client: client}
}

// Topic 返回事件的发布主题
func (s *MQTTSink) Topic(ev types.Event) string {
	return s.config.Topic + "/" + ev.Office
}

// Publish 实现 Sink
func (s *MQTTSink) Publish(_ context.Context, ev types.Event) error {
	payload, err := json.Marshal(NewFeedEvent(ev))
	if err != nil {
		return err
	}
	token := s.client.Publish(s.Topic(ev), s.config.QoS, false, payload)
	if !token.WaitTimeout(s.config.Timeout) {
		return ErrMQTTTimeout
	}
	return token.Error()
}

// Close 实现 Sink
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
