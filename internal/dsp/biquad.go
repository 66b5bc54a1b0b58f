package dsp

import "math"

// biquad is a 2nd order IIR section in Direct Form II (transposed).
// Coefficients are normalised so that a[0] == 1.
type biquad struct {
	b [3]float64
	a [3]float64
	w [2]float64
}

func newBiquad(b, a [3]float64) biquad {
	for i := range b {
		b[i] /= a[0]
	}
	a[1] /= a[0]
	a[2] /= a[0]
	a[0] = 1
	return biquad{b: b, a: a}
}

// lowPassSection is a Butterworth (Q = 1/√2) low-pass section, RBJ cookbook
// form with bilinear transform.
func lowPassSection(cutoffHz, sampleRateHz float64) biquad {
	sin, cos := math.Sincos(2 * math.Pi * cutoffHz / sampleRateHz)
	alpha := sin / math.Sqrt2 // Q = 1/√2
	return newBiquad(
		[3]float64{(1 - cos) / 2, 1 - cos, (1 - cos) / 2},
		[3]float64{1 + alpha, -2 * cos, 1 - alpha},
	)
}

// highPassSection is the Butterworth high-pass counterpart of lowPassSection.
func highPassSection(cutoffHz, sampleRateHz float64) biquad {
	sin, cos := math.Sincos(2 * math.Pi * cutoffHz / sampleRateHz)
	alpha := sin / math.Sqrt2 // Q = 1/√2
	return newBiquad(
		[3]float64{(1 + cos) / 2, -(1 + cos), (1 + cos) / 2},
		[3]float64{1 + alpha, -2 * cos, 1 - alpha},
	)
}

func (f *biquad) filter(x float64) float64 {
	y := f.w[0] + f.b[0]*x
	f.w[0] = f.w[1] - f.a[1]*y + f.b[1]*x
	f.w[1] = f.b[2]*x - f.a[2]*y
	return y
}

func (f *biquad) reset() {
	f.w = [2]float64{}
}
