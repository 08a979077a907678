package random

import "testing"

func TestNewSeedVaries(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	b, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct seeds, got %d twice", a)
	}
}

func TestNew(t *testing.T) {
	rng, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if n := rng.IntN(10); n < 0 || n >= 10 {
		t.Fatalf("IntN out of range: %d", n)
	}
}
