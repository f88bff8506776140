// Package common holds helpers shared by the security server and its callers.
//
// It provides a gRPC client for the security service with per-call timeouts
// and detection of the calling user and host for audit logging.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
