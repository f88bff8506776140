// Package status implements storage for the security state.
//
// Memory is the in-process StatusRepository the state machine works on.
// Durable copies of its Snapshot are kept by a Store: FileStore writes
// protobuf JSON to disk and RedisStore keeps the same document in Redis.
package status
