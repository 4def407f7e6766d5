package physics

import (
	"math"
	"testing"
)

func TestInitializer_Deterministic(t *testing.T) {
	a := NewInitializer(42).State(200)
	b := NewInitializer(42).State(200)

	if len(a) != 400 || len(b) != 400 {
		t.Fatalf("lengths = %d, %d, want 400", len(a), len(b))
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			t.Fatalf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestInitializer_RepeatedCalls(t *testing.T) {
	in := NewInitializer(7)
	a := in.State(16)
	b := in.State(16)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("repeated State calls differ at %d", i)
		}
	}
}

func TestInitializer_SeedsDiffer(t *testing.T) {
	a := NewInitializer(1).State(50)
	b := NewInitializer(2).State(50)
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	if same == len(a) {
		t.Error("different seeds produced identical states")
	}
}

func TestInitializer_Ranges(t *testing.T) {
	n := 5000
	y := NewInitializer(123).State(n)

	for i := 0; i < n; i++ {
		if y[i] <= -math.Pi || y[i] > math.Pi {
			t.Fatalf("phi[%d] = %v outside (-pi, pi]", i, y[i])
		}
	}
	for i := n; i < 2*n; i++ {
		if y[i] < -MaxInitialVelocity || y[i] > MaxInitialVelocity {
			t.Fatalf("dphi[%d] = %v outside [-0.1, 0.1]", i-n, y[i])
		}
	}

	mean := 0.0
	for i := 0; i < n; i++ {
		mean += y[i]
	}
	mean /= float64(n)
	if math.Abs(mean) > 0.2 {
		t.Errorf("phi mean %v is far from 0 for a uniform draw", mean)
	}
}

func TestInitializer_Empty(t *testing.T) {
	if y := NewInitializer(1).State(0); len(y) != 0 {
		t.Errorf("State(0) len = %d", len(y))
	}
	if y := NewInitializer(1).State(-3); len(y) != 0 {
		t.Errorf("State(-3) len = %d", len(y))
	}
}
