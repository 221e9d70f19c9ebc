// Package mqtt provides MQTT connectivity for robotd.
//
// robotd talks to the robot over a broker: commands are published to
// robot/command/{robot_id} and acknowledgements come back on
// robot/ack/{robot_id}. Execution events are mirrored to
// robot/core/event/{type} for other consumers. robotd's own liveness is a
// retained message on robot/system/status, backed by a Last Will.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().RobotAck("robot-01"), 1,
//	    func(topic string, payload []byte) error {
//	        return handleAck(payload)
//	    })
package mqtt
