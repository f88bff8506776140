// Package codec converts security domain types to and from protobuf
// well-known types.
//
// Snapshots travel as google.protobuf.Struct documents both over gRPC and
// in persisted state files, so every layer agrees on a single layout:
//
//	{
//	  "arming": "ARMED_HOME",
//	  "alarm": "PENDING_ALARM",
//	  "cat_detected": false,
//	  "updated_at": "2024-05-01T10:00:00Z",
//	  "sensors": [{"name": "front door", "type": "DOOR", "active": true}]
//	}
package codec
