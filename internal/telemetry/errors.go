package telemetry

import "errors"

var (
	// ErrNotConnected is returned when an operation requires a live
	// InfluxDB connection but the client is not connected.
	ErrNotConnected = errors.New("telemetry: not connected to influxdb")

	// ErrConnectionFailed is returned when the initial connection to
	// InfluxDB cannot be established.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrWriteFailed is returned when a write is rejected by the server.
	ErrWriteFailed = errors.New("telemetry: write failed")

	// ErrDisabled is returned when telemetry is disabled in configuration.
	ErrDisabled = errors.New("telemetry: disabled in configuration")
)
