package entity

import "testing"

func TestDeriveKeyStable(t *testing.T) {
	// The derivation is pure: the same pair must yield the same key on
	// every call, and never zero.
	first := DeriveKey("temp", KindSensor)
	for i := 0; i < 3; i++ {
		if got := DeriveKey("temp", KindSensor); got != first {
			t.Fatalf("DeriveKey not stable: %d then %d", first, got)
		}
	}
	if first == 0 {
		t.Error("DeriveKey returned the reserved zero key")
	}
}

func TestDeriveKeyKnownVector(t *testing.T) {
	// FNV-1a of "relay_switch": offset basis 2166136261, prime 16777619.
	want := fnv1a("relay_switch")
	if want == 0 {
		want = 1
	}
	if got := DeriveKey("relay", KindSwitch); uint32(got) != want {
		t.Errorf("DeriveKey(relay, switch) = %d, want %d", got, want)
	}
}

// fnv1a is an independent reference implementation for the test.
func fnv1a(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func TestDeriveKeyDistinguishesPairs(t *testing.T) {
	tests := []struct {
		aName string
		aKind Kind
		bName string
		bKind Kind
	}{
		{"temp", KindSensor, "humidity", KindSensor},
		{"relay", KindSwitch, "relay", KindLight},
		{"door", KindBinarySensor, "door", KindSensor},
	}

	for _, tt := range tests {
		a := DeriveKey(tt.aName, tt.aKind)
		b := DeriveKey(tt.bName, tt.bKind)
		if a == b {
			t.Errorf("DeriveKey(%s,%s) == DeriveKey(%s,%s) = %d",
				tt.aName, tt.aKind, tt.bName, tt.bKind, a)
		}
	}
}
