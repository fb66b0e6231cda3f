package v32

import "testing"

func TestRNGDefaultSeedSequence(t *testing.T) {
	rng := NewRNG()
	first, _ := rng.ReadPort(RNGPortCurrentValue)
	if first.AsUint() != 1 {
		t.Fatalf("first value = %d, want default seed 1", first.AsUint())
	}
	second, _ := rng.ReadPort(RNGPortCurrentValue)
	want := uint32((uint64(1) * rngMultiplier) % rngModulus)
	if second.AsUint() != want {
		t.Fatalf("second value = %d, want %d", second.AsUint(), want)
	}
}

func TestRNGReseed(t *testing.T) {
	rng := NewRNG()
	rng.WritePort(RNGPortCurrentValue, 12345)
	v, _ := rng.ReadPort(RNGPortCurrentValue)
	if v.AsUint() != 12345 {
		t.Fatalf("seeded value = %d, want 12345", v.AsUint())
	}
}

func TestRNGIgnoresZeroSeed(t *testing.T) {
	rng := NewRNG()
	rng.ReadPort(RNGPortCurrentValue) // advance off the default seed
	before := rng.value
	rng.WritePort(RNGPortCurrentValue, 0)
	if rng.value != before {
		t.Fatalf("writing 0 should be ignored, state changed from %d to %d", before, rng.value)
	}
}

func TestRNGReset(t *testing.T) {
	rng := NewRNG()
	rng.WritePort(RNGPortCurrentValue, 999)
	rng.Reset()
	v, _ := rng.ReadPort(RNGPortCurrentValue)
	if v.AsUint() != 1 {
		t.Fatalf("after Reset, value = %d, want 1", v.AsUint())
	}
}
