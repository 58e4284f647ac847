// Package entity holds the device-side entity model: the set of sensors
// and actuators a node exposes, their current values, and the push
// contract that keeps a subscribed controller in sync.
//
// # Keys
//
// Every entity is identified by a stable 32-bit key derived from its name
// and kind with FNV-1a (see DeriveKey). Zero is reserved for "invalid";
// a raw hash of zero is remapped to 1. Collisions are not resolved:
// callers are responsible for uniqueness of (name, kind) pairs.
//
// # Registry
//
// The Registry owns a fixed-capacity arena of entity slots. It is a
// bounded-memory component: registration past capacity fails with
// ErrRegistryFull, surfaced at startup rather than at runtime.
//
// The state-synchronisation contract is UpdateState: every mutation path
// goes through it, and if a connection is subscribed the new state is
// pushed immediately. Subscribe installs the sink and replays the full
// snapshot in one critical section, so a subscriber always observes
// snapshot, then deltas, even with updates racing the subscription.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. The registry is
// touched both by the connection handler (subscribe, commands) and by
// the hardware value-update path, which run concurrently.
package entity
