package physics

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/breathsim/internal/dynamo"
)

func TestBreathingField_PureCoupling(t *testing.T) {
	b := NewBreathingField(3, 1, 0, 1)
	y := dynamo.State{0, 1, 0, 0, 0, 0}

	dy := b.Derive(y, 0)

	want := []float64{1, -2, 1}
	for i, w := range want {
		if dy[3+i] != w {
			t.Errorf("phi''[%d] = %v, want %v", i, dy[3+i], w)
		}
	}
	for i := 0; i < 3; i++ {
		if dy[i] != 0 {
			t.Errorf("dphi/dt[%d] = %v, want 0", i, dy[i])
		}
	}
}

func TestBreathingField_VelocityPassThrough(t *testing.T) {
	b := NewBreathingField(3, 2, 0.7, 5)
	y := dynamo.State{0.1, 0.2, 0.3, -1, 0.5, 2}

	dy := b.Derive(y, 0)
	for i := 0; i < 3; i++ {
		if dy[i] != y[3+i] {
			t.Errorf("dy[%d] = %v, want %v", i, dy[i], y[3+i])
		}
	}
}

func TestBreathingField_ReflectingBoundaries(t *testing.T) {
	b := NewBreathingField(4, 1, 0, 1)
	phi := []float64{0.3, -1.2, 2.5, 0.7}
	y := dynamo.Concat(phi, make(dynamo.State, 4))

	dy := b.Derive(y, 0)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"left edge", dy[4], phi[1] - phi[0]},
		{"right edge", dy[7], phi[2] - phi[3]},
		{"interior", dy[5], phi[0] + phi[2] - 2*phi[1]},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-12 {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestBreathingField_UniformField(t *testing.T) {
	tests := []struct {
		name string
		c    float64
	}{
		{"zero", 0},
		{"small", 0.25},
		{"negative", -2.1},
		{"pi", math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoupled := NewBreathingField(5, 1.5, 0, 7)
			y := make(dynamo.State, 10)
			for i := 0; i < 5; i++ {
				y[i] = tt.c
			}
			dy := decoupled.Derive(y, 0)
			for i := 5; i < 10; i++ {
				if dy[i] != 0 {
					t.Fatalf("coupling term not zero at site %d: %v", i-5, dy[i])
				}
			}

			b := NewBreathingField(5, 1.5, 0.7, 7)
			dy = b.Derive(y, 0)
			want := math.Pow(0.7, 4) * math.Sin(tt.c) / 1.5
			for i := 5; i < 10; i++ {
				if math.Abs(dy[i]-want) > 1e-15 {
					t.Errorf("site %d: got %v, want %v", i-5, dy[i], want)
				}
			}
		})
	}
}

func TestBreathingField_SingleSite(t *testing.T) {
	b := NewBreathingField(1, 1, 1, 100)
	dy := b.Derive(dynamo.State{math.Pi / 2, 0.3}, 0)
	if dy[0] != 0.3 {
		t.Errorf("velocity = %v", dy[0])
	}
	if math.Abs(dy[1]-1) > 1e-15 {
		t.Errorf("acceleration = %v, want 1 (no neighbor force on an isolated site)", dy[1])
	}
}

func TestBreathingField_ShortStatePanics(t *testing.T) {
	b := NewBreathingField(4, 1, 1, 1)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for a state shorter than 2N")
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, "length 2") {
			t.Errorf("panic message %q does not name the length", msg)
		}
	}()
	b.Derive(dynamo.State{1, 2}, 0)
}

func TestBreathingField_VelocityLimit(t *testing.T) {
	b := NewBreathingField(5, 1.3, 0.8, 2.5)
	y := NewInitializer(11).State(5)
	limit := b.VelocityLimit(y)

	for i := 0; i < 5; i++ {
		if v := math.Abs(y[5+i]); v > limit {
			t.Errorf("site %d: |dphi| = %v above limit %v", i, v, limit)
		}
	}

	repulsive := NewBreathingField(5, 1.3, 0.8, -1)
	if !math.IsInf(repulsive.VelocityLimit(y), 1) {
		t.Errorf("negative coupling should give no finite limit")
	}
}

func TestBreathingField_ForceIsEnergyGradient(t *testing.T) {
	b := NewBreathingField(6, 1.3, 0.8, 2.5)
	y := NewInitializer(7).State(6)
	dy := b.Derive(y, 0)

	const h = 1e-6
	for i := 0; i < 6; i++ {
		yp, ym := y.Clone(), y.Clone()
		yp[i] += h
		ym[i] -= h
		grad := (b.Energy(yp) - b.Energy(ym)) / (2 * h)
		if want := -grad / b.Kappa; math.Abs(dy[6+i]-want) > 1e-6 {
			t.Errorf("site %d: phi'' = %v, -dV/dphi/kappa = %v", i, dy[6+i], want)
		}
	}
}

func TestBreathingField_Params(t *testing.T) {
	b := NewBreathingField(10, 1, 0.7, 5)

	params := b.GetParams()
	if params["kappa"] != 1 || params["lambda"] != 0.7 || params["coupling"] != 5 {
		t.Errorf("GetParams() = %v", params)
	}

	if err := b.SetParam("coupling", 2); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if b.Coupling != 2 {
		t.Errorf("Coupling = %v, want 2", b.Coupling)
	}
	if err := b.SetParam("kappa", 0); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("SetParam(kappa, 0) err = %v", err)
	}
	if err := b.SetParam("gravity", 9.81); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestBreathingField_Validate(t *testing.T) {
	tests := []struct {
		name  string
		field *BreathingField
		ok    bool
	}{
		{"reference", NewBreathingField(200, 1, 0.7, 5), true},
		{"single site", NewBreathingField(1, 1, 0.7, 5), true},
		{"empty grid", NewBreathingField(0, 1, 0.7, 5), false},
		{"zero kappa", NewBreathingField(10, 0, 0.7, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}
