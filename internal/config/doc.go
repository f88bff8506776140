// Package config defines the settings used by the security server and
// provides helpers to load, validate and save them in YAML format.
//
// Optional integrations (MQTT, Postgres history, S3 archive, metrics) are
// disabled unless their address or bucket is set.
package config
