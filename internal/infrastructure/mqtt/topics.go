package mqtt

import "fmt"

// TopicPrefix is the root of every devicekit topic.
const TopicPrefix = "devicekit"

// Topics provides builders for devicekit MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceProperties("lumia-01") // "devicekit/device/lumia-01/properties"
type Topics struct{}

// DeviceProperties carries the retained property snapshot after each pass.
func (Topics) DeviceProperties(key string) string {
	return fmt.Sprintf("%s/device/%s/properties", TopicPrefix, key)
}

// DeviceReady carries the retained readiness state and last pass summary.
func (Topics) DeviceReady(key string) string {
	return fmt.Sprintf("%s/device/%s/ready", TopicPrefix, key)
}

// DeviceCommand is where remote commands (e.g. "refresh") arrive.
func (Topics) DeviceCommand(key, command string) string {
	return fmt.Sprintf("%s/device/%s/command/%s", TopicPrefix, key, command)
}

// Status is the retained online/offline topic, also used as the last will.
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, clientID)
}
