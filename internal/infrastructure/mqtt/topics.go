package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefixRobot is the base for device-facing topics.
	TopicPrefixRobot = "robot"

	// TopicPrefixCore is the base for topics published by robotd itself.
	TopicPrefixCore = "robot/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "robot/system"
)

// Topics provides builders for robotd MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.RobotCommand("robot-01") // "robot/command/robot-01"
type Topics struct{}

// RobotCommand is where commands for a robot are published.
func (Topics) RobotCommand(robotID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixRobot, robotID)
}

// RobotAck is where a robot acknowledges or rejects commands.
func (Topics) RobotAck(robotID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefixRobot, robotID)
}

// RobotState is where a robot reports telemetry. robotd does not consume
// it; the topic is reserved so dashboards and robotd agree on the layout.
func (Topics) RobotState(robotID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefixRobot, robotID)
}

// CoreEvent is where execution events of one type are published.
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// AllCoreEvents matches every execution event topic.
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// SystemStatus carries robotd's retained online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
