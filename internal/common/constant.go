// Package common contains shared constants and sentinel errors used across
// kosync components.
package common

// CorrelationIDHeaderName is the gRPC metadata key carrying the per-call
// correlation id, both inbound (when a proxy supplies one) and outbound.
const CorrelationIDHeaderName = "x-correlation-id"

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "KOSYNC_"
