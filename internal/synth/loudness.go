package synth

import "math"

// Integrated loudness per ITU-R BS.1770-4: K-weighting prefilters, 400 ms
// gated blocks with 75% overlap, an absolute gate at -70 LUFS and a relative
// gate 10 LU below the ungated level.

const (
	blockSeconds   = 0.4
	blockOverlap   = 4 // 75% overlap → hop = block/4
	absoluteGate   = -70.0
	relativeGateLU = 10.0
	// silenceLUFS is reported for signals with no gated energy at all.
	silenceLUFS = -70.0
)

// biquad is a direct-form-II-transposed second-order IIR section.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// kShelf builds the BS.1770 high-shelf stage (head effect model) for an
// arbitrary sample rate.
func kShelf(sampleRate int) biquad {
	const (
		f0 = 1681.974450955533
		g  = 3.999843853973347
		q  = 0.7071752369554196
	)
	a := math.Pow(10, g/40)
	w0 := 2 * math.Pi * f0 / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	a0 := (a + 1) - (a-1)*cosW0 + 2*math.Sqrt(a)*alpha
	return biquad{
		b0: a * ((a + 1) + (a-1)*cosW0 + 2*math.Sqrt(a)*alpha) / a0,
		b1: -2 * a * ((a - 1) + (a+1)*cosW0) / a0,
		b2: a * ((a + 1) + (a-1)*cosW0 - 2*math.Sqrt(a)*alpha) / a0,
		a1: 2 * ((a - 1) - (a+1)*cosW0) / a0,
		a2: ((a + 1) - (a-1)*cosW0 - 2*math.Sqrt(a)*alpha) / a0,
	}
}

// kHighpass builds the BS.1770 high-pass stage for an arbitrary sample rate.
func kHighpass(sampleRate int) biquad {
	const (
		f0 = 38.13547087602444
		q  = 0.5003270373238773
	)
	w0 := 2 * math.Pi * f0 / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// MeasureLUFS returns the gated integrated loudness of the buffer in LUFS.
func MeasureLUFS(b *Buffer) float64 {
	hop := FramesFor(b.SampleRate, blockSeconds) / blockOverlap
	if hop == 0 || b.Frames() < hop*blockOverlap {
		return silenceLUFS
	}

	// Streamed K-weighting: accumulate per-hop energy sums instead of
	// materializing filtered copies of a possibly hour-long signal.
	hopEnergy := measureHopEnergy(b, hop)

	blockFrames := float64(hop * blockOverlap)
	nBlocks := len(hopEnergy) - blockOverlap + 1
	if nBlocks <= 0 {
		return silenceLUFS
	}

	power := make([]float64, nBlocks)
	loud := make([]float64, nBlocks)
	for j := 0; j < nBlocks; j++ {
		var sum float64
		for k := 0; k < blockOverlap; k++ {
			sum += hopEnergy[j+k]
		}
		power[j] = sum / blockFrames
		loud[j] = -0.691 + 10*math.Log10(power[j]+1e-24)
	}

	// Absolute gate, then relative gate.
	mean := gatedMean(power, loud, absoluteGate)
	if mean <= 0 {
		return silenceLUFS
	}
	relGate := -0.691 + 10*math.Log10(mean) - relativeGateLU

	mean = gatedMean(power, loud, relGate)
	if mean <= 0 {
		return silenceLUFS
	}
	return -0.691 + 10*math.Log10(mean)
}

// measureHopEnergy runs both channels through fresh K-weighting chains and
// returns the summed L+R squared energy per hop window.
func measureHopEnergy(b *Buffer, hop int) []float64 {
	shelfL, shelfR := kShelf(b.SampleRate), kShelf(b.SampleRate)
	hpL, hpR := kHighpass(b.SampleRate), kHighpass(b.SampleRate)

	nHops := b.Frames() / hop
	energy := make([]float64, nHops)
	for h := 0; h < nHops; h++ {
		var sum float64
		base := h * hop
		for i := 0; i < hop; i++ {
			l := hpL.process(shelfL.process(b.L[base+i]))
			r := hpR.process(shelfR.process(b.R[base+i]))
			sum += l*l + r*r
		}
		energy[h] = sum
	}
	return energy
}

func gatedMean(power, loud []float64, gate float64) float64 {
	var sum float64
	var n int
	for j := range power {
		if loud[j] > gate {
			sum += power[j]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// NormalizeToLUFS scales the buffer so its integrated loudness hits the
// target, then caps the result at just below full scale. Returns the gain
// applied in dB.
func NormalizeToLUFS(b *Buffer, targetLUFS float64) float64 {
	measured := MeasureLUFS(b)
	if measured <= silenceLUFS {
		return 0
	}
	gainDB := targetLUFS - measured
	scale := DBToLinear(gainDB)

	// Peak guard: a quiet but spiky mix could clip after makeup gain.
	if peak := b.Peak(); peak*scale > 0.999 {
		scale = 0.999 / peak
		gainDB = 20 * math.Log10(scale)
	}
	b.Gain(scale)
	return gainDB
}
