// Package security contains core domain types for the home security logic.
//
// It defines the arming and alarm status enumerations, the Sensor type and
// the Snapshot that captures the whole security state at a point in time.
// Clone helpers are provided to avoid leaking internal references.
package security
