// Package history records security state changes in Postgres.
//
// Recorder is a StatusListener. It never blocks the caller: events are
// queued to a bounded buffer and written by a background worker. Events that
// arrive while the buffer is full are dropped and counted.
package history
