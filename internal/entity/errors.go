package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrRegistryFull is returned when registration would exceed the
	// registry's fixed capacity. Surface this at startup: it means the
	// node's configuration exposes more entities than the build allows.
	ErrRegistryFull = errors.New("entity: registry capacity exceeded")

	// ErrDuplicateKey is returned when a (name, kind) pair derives a key
	// that is already registered.
	ErrDuplicateKey = errors.New("entity: duplicate entity key")

	// ErrUnknownKey is returned when an operation names a key that is not
	// registered.
	ErrUnknownKey = errors.New("entity: unknown entity key")

	// ErrKindMismatch is returned when a state update's kind does not
	// match the registered entity's kind.
	ErrKindMismatch = errors.New("entity: state kind does not match entity kind")
)
