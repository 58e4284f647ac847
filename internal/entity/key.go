package entity

import "hash/fnv"

// DeriveKey derives an entity's stable key from its name and kind.
//
// The key is the FNV-1a 32-bit hash (offset basis 2166136261, prime
// 16777619) of the UTF-8 bytes of "<name>_<kind>". A raw hash of zero is
// remapped to 1, keeping zero reserved for "invalid".
//
// The derivation is deterministic so the same (name, kind) pair yields
// the same key on the device, in generated firmware tables, and in test
// harnesses. Collisions between distinct pairs are possible and are not
// resolved here.
func DeriveKey(name string, kind Kind) Key {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte{'_'})
	h.Write([]byte(kind.String()))

	k := h.Sum32()
	if k == 0 {
		k = 1
	}
	return Key(k)
}
