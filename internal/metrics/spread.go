package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// FieldSpread is the mean over samples of the population standard deviation
// of phi across the lattice. A synchronized field has spread zero.
type FieldSpread struct {
	n       int
	sum     float64
	samples int
}

func NewFieldSpread(n int) *FieldSpread {
	return &FieldSpread{n: n}
}

func (f *FieldSpread) Name() string { return "field_spread" }

func (f *FieldSpread) Observe(x dynamo.State, t float64) {
	phi, _ := x.Split(f.n)
	if len(phi) == 0 {
		return
	}
	_, std := stat.PopMeanStdDev(phi, nil)
	f.sum += std
	f.samples++
}

func (f *FieldSpread) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return f.sum / float64(f.samples)
}

func (f *FieldSpread) Reset() {
	f.sum = 0
	f.samples = 0
}
