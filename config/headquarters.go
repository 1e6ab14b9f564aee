package config

import "fmt"

// HeadquartersConfig 总部配置
type HeadquartersConfig struct {
	// WSAddr websocket 事件流监听地址，空表示关闭
	WSAddr string `json:"ws_addr" yaml:"ws_addr"`

	// MQTTBroker MQTT broker 地址（如 tcp://localhost:1883），空表示关闭
	MQTTBroker string `json:"mqtt_broker" yaml:"mqtt_broker"`

	// MQTTTopic 事件发布主题前缀
	MQTTTopic string `json:"mqtt_topic" yaml:"mqtt_topic"`

	// MQTTClientID MQTT 客户端 ID
	MQTTClientID string `json:"mqtt_client_id" yaml:"mqtt_client_id"`

	// MQTTQoS 发布 QoS
	MQTTQoS byte `json:"mqtt_qos" yaml:"mqtt_qos"`
}

// DefaultHeadquartersConfig 默认总部配置
func DefaultHeadquartersConfig() HeadquartersConfig {
	return HeadquartersConfig{
		MQTTTopic:    "gpsoffice/events",
		MQTTClientID: "gpsoffice-headquarters",
	}
}

// Validate 验证总部配置
func (c HeadquartersConfig) Validate() error {
	if c.MQTTQoS > 2 {
		return fmt.Errorf("%w: headquarters.mqtt_qos %d", ErrInvalidConfig, c.MQTTQoS)
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return fmt.Errorf("%w: headquarters.mqtt_topic required with mqtt_broker", ErrInvalidConfig)
	}
	return nil
}
