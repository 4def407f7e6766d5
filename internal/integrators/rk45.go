package integrators

import (
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Continuous extension of Dormand-Prince (Shampine 1986). Row j weights
// stage k_{j+1}; column m multiplies theta^(m+1). Rows sum to the 5th-order
// weights so theta=1 reproduces the step end.
var denseP = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

const (
	// order of the embedded error estimator; step factors use -1/(order+1)
	errorEstimatorOrder = 4
	errorExponent       = -1.0 / (errorEstimatorOrder + 1)
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// rkStep is one Dormand-Prince attempt from (t, y0) with size h. k[6] is
// the derivative at the step end, reused as k[0] of the next step.
type rkStep struct {
	t, h   float64
	y0, y1 dynamo.State
	k      [7]dynamo.State
}

func (s *rkStep) f1() dynamo.State { return s.k[6] }

func (r *RK45) attempt(dyn dynamo.System, x, f0 dynamo.State, t, dt float64) *rkStep {
	n := len(x)
	s := &rkStep{t: t, h: dt, y0: x}

	k1 := f0
	s.k[0] = k1

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(x2, t+a2*dt)
	s.k[1] = k2

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(x3, t+a3*dt)
	s.k[2] = k3

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(x4, t+a4*dt)
	s.k[3] = k4

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(x5, t+a5*dt)
	s.k[4] = k5

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(x6, t+dt)
	s.k[5] = k6

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	s.y1 = xNew
	s.k[6] = dyn.Derive(xNew, t+dt)

	return s
}

// errEst returns the local error estimate of component i.
func (s *rkStep) errEst(i int) float64 {
	k := s.k
	return s.h * (dc1*k[0][i] + dc3*k[2][i] + dc4*k[3][i] + dc5*k[4][i] + dc6*k[5][i] + dc7*k[6][i])
}

// errorNorm is the RMS of the error estimate scaled by atol + rtol*max(|y0|, |y1|).
func (s *rkStep) errorNorm(rtol, atol float64) float64 {
	n := len(s.y0)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		scale := atol + rtol*math.Max(math.Abs(s.y0[i]), math.Abs(s.y1[i]))
		e := s.errEst(i) / scale
		sum += e * e
	}
	return math.Sqrt(sum / float64(n))
}

// interpolate evaluates the dense output at tq in [t, t+h].
func (s *rkStep) interpolate(tq float64) dynamo.State {
	theta := (tq - s.t) / s.h

	var w [7]float64
	for j := range denseP {
		p := theta
		for m := 0; m < 4; m++ {
			w[j] += denseP[j][m] * p
			p *= theta
		}
	}

	out := make(dynamo.State, len(s.y0))
	for i := range out {
		acc := 0.0
		for j := range w {
			acc += w[j] * s.k[j][i]
		}
		out[i] = s.y0[i] + s.h*acc
	}
	return out
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	newX, _, _ := r.StepAdaptive(dyn, x, t, dt, 1e-6)
	return newX
}

// StepAdaptive takes one step of size dt and proposes the next step size
// for a mixed absolute/relative tolerance tol.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, error) {
	s := r.attempt(dyn, x, dyn.Derive(x, t), t, dt)
	if !s.y1.IsValid() {
		return s.y1, dt, dynamo.ErrInvalidState
	}

	errMax := 0.0
	for i := range x {
		scale := math.Abs(x[i]) + math.Abs(dt*s.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(s.errEst(i))/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dtNew = dt * scale
	} else {
		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			dtNew = dt * scale
		} else {
			dtNew = dt * r.maxScale
		}
	}

	return s.y1, dtNew, nil
}
