// Package mirror publishes entity state to an MQTT broker.
//
// The mirror is a one-way reflection of the registry: every state
// change is published retained, so any MQTT consumer sees the node's
// current state without speaking the native protocol. Availability is
// tracked with a Last Will and Testament on the device status topic -
// "online" while connected, "offline" on graceful shutdown or crash.
//
// Publishing happens on a background worker fed by the registry's
// observer hook; a slow or absent broker never stalls the protocol's
// push path.
package mirror
