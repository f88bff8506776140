// Package mqtt connects the security service to an MQTT broker.
//
// Bridge feeds sensor and camera messages into the service:
//
//	<base>/sensors/<name>/state   {"active": true} or OPEN/CLOSED, ON/OFF, true/false
//	<base>/camera/image           raw image bytes
//
// Publisher is a StatusListener that reports changes as retained messages:
//
//	<base>/alarm/status           NO_ALARM | PENDING_ALARM | ALARM
//	<base>/camera/cat             true | false
//	<base>/sensors/<name>         {"name": "...", "type": "DOOR", "active": true}
package mqtt
