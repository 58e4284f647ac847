// Package telemetry streams numeric entity state to InfluxDB.
//
// Writes are non-blocking: points are batched by the InfluxDB client
// and flushed in the background, so the registry's push path never
// waits on the network. Boolean states are written as 0/1 so switch
// duty cycles and door-open time can be graphed alongside sensor
// readings.
package telemetry
