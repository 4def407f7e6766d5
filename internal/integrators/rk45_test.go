package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/breathsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	finalEnergy := dyn.Energy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, 0, 0.1, 1e-8)

	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}

	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45_DenseOutputEndpoints(t *testing.T) {
	r := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{0.3, -0.8}

	st := r.attempt(dyn, x0, dyn.Derive(x0, 0), 0, 0.2)

	start := st.interpolate(0)
	for i := range x0 {
		if start[i] != x0[i] {
			t.Errorf("theta=0: component %d = %v, want %v", i, start[i], x0[i])
		}
	}

	end := st.interpolate(0.2)
	for i := range end {
		if math.Abs(end[i]-st.y1[i]) > 1e-14 {
			t.Errorf("theta=1: component %d = %v, want %v", i, end[i], st.y1[i])
		}
	}
}

func TestRK45_DenseOutputAccuracy(t *testing.T) {
	r := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1, 0}
	h := 0.1

	st := r.attempt(dyn, x0, dyn.Derive(x0, 0), 0, h)
	for _, tq := range []float64{0.013, 0.05, 0.077} {
		got := st.interpolate(tq)
		if math.Abs(got[0]-math.Cos(tq)) > 1e-7 || math.Abs(got[1]+math.Sin(tq)) > 1e-7 {
			t.Errorf("interpolate(%v) = %v, want [%v %v]", tq, got, math.Cos(tq), -math.Sin(tq))
		}
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x4 := x0.Clone()
	x45 := x0.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4 = rk4.Step(dyn, x4, float64(i)*dt, dt)
		x45 = rk45.Step(dyn, x45, float64(i)*dt, dt)
	}

	t.Logf("RK4 final: [%.6f, %.6f]", x4[0], x4[1])
	t.Logf("RK45 final: [%.6f, %.6f]", x45[0], x45[1])

	e4 := (&harmonicOscillator{}).Energy(x4)
	e45 := (&harmonicOscillator{}).Energy(x45)

	if math.Abs(e45-0.5) > math.Abs(e4-0.5) {
		t.Log("Warning: RK45 not more accurate than RK4 for this case")
	}
}
