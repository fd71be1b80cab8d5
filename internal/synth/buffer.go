// Package synth implements the audio synthesis engine: layer generation,
// duration fitting, mixing, loudness normalization and artifact encoding.
// All waveform work is pure in-process sample computation; nothing here
// shells out to external media tooling.
package synth

import "math"

// Buffer is a stereo float64 PCM buffer. Every layer is held in this form,
// at the engine sample rate, before mixing. Samples are nominally in [-1, 1].
type Buffer struct {
	SampleRate int
	L, R       []float64
}

// NewBuffer allocates a silent stereo buffer of the given frame count.
func NewBuffer(sampleRate, frames int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		L:          make([]float64, frames),
		R:          make([]float64, frames),
	}
}

// FramesFor converts a duration in seconds to a frame count at a sample rate.
func FramesFor(sampleRate int, seconds float64) int {
	return int(math.Round(seconds * float64(sampleRate)))
}

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int { return len(b.L) }

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(len(b.L)) / float64(b.SampleRate)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := NewBuffer(b.SampleRate, b.Frames())
	copy(out.L, b.L)
	copy(out.R, b.R)
	return out
}

// TrimFrames shortens the buffer to at most n frames.
func (b *Buffer) TrimFrames(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(b.L) {
		b.L = b.L[:n]
		b.R = b.R[:n]
	}
}

// Append concatenates other onto b. Both buffers must share a sample rate;
// callers resample before appending.
func (b *Buffer) Append(other *Buffer) {
	b.L = append(b.L, other.L...)
	b.R = append(b.R, other.R...)
}

// AppendSilence extends the buffer with zero samples.
func (b *Buffer) AppendSilence(seconds float64) {
	n := FramesFor(b.SampleRate, seconds)
	b.L = append(b.L, make([]float64, n)...)
	b.R = append(b.R, make([]float64, n)...)
}

// AppendCrossfade concatenates other onto b with an equal-power crossfade of
// fadeSeconds over the seam, so loop boundaries never click. The fade length
// is clamped to half of either buffer.
func (b *Buffer) AppendCrossfade(other *Buffer, fadeSeconds float64) {
	fade := FramesFor(b.SampleRate, fadeSeconds)
	if max := b.Frames() / 2; fade > max {
		fade = max
	}
	if max := other.Frames() / 2; fade > max {
		fade = max
	}
	if fade <= 0 {
		b.Append(other)
		return
	}

	start := b.Frames() - fade
	for i := 0; i < fade; i++ {
		theta := (float64(i) / float64(fade)) * math.Pi / 2
		out, in := math.Cos(theta), math.Sin(theta)
		b.L[start+i] = b.L[start+i]*out + other.L[i]*in
		b.R[start+i] = b.R[start+i]*out + other.R[i]*in
	}
	b.L = append(b.L, other.L[fade:]...)
	b.R = append(b.R, other.R[fade:]...)
}

// FadeIn applies a linear ramp from zero over the first seconds of the buffer.
func (b *Buffer) FadeIn(seconds float64) {
	n := FramesFor(b.SampleRate, seconds)
	if n > b.Frames() {
		n = b.Frames()
	}
	for i := 0; i < n; i++ {
		g := float64(i) / float64(n)
		b.L[i] *= g
		b.R[i] *= g
	}
}

// FadeOut applies a linear ramp to zero over the last seconds of the buffer.
func (b *Buffer) FadeOut(seconds float64) {
	n := FramesFor(b.SampleRate, seconds)
	if n > b.Frames() {
		n = b.Frames()
	}
	total := b.Frames()
	for i := 0; i < n; i++ {
		g := float64(n-1-i) / float64(n)
		b.L[total-n+i] *= g
		b.R[total-n+i] *= g
	}
}

// Gain scales all samples by a linear factor.
func (b *Buffer) Gain(linear float64) {
	for i := range b.L {
		b.L[i] *= linear
		b.R[i] *= linear
	}
}

// Peak returns the largest absolute sample value across both channels.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for i := range b.L {
		if v := math.Abs(b.L[i]); v > peak {
			peak = v
		}
		if v := math.Abs(b.R[i]); v > peak {
			peak = v
		}
	}
	return peak
}

// Slice returns a copy of the frames in [from, from+n).
func (b *Buffer) Slice(from, n int) *Buffer {
	if from < 0 {
		from = 0
	}
	if from > b.Frames() {
		from = b.Frames()
	}
	if from+n > b.Frames() {
		n = b.Frames() - from
	}
	out := NewBuffer(b.SampleRate, n)
	copy(out.L, b.L[from:from+n])
	copy(out.R, b.R[from:from+n])
	return out
}

// Resample converts the buffer to a new sample rate by linear interpolation.
// Returns the receiver unchanged when the rates already match.
func (b *Buffer) Resample(rate int) *Buffer {
	if rate == b.SampleRate || b.Frames() == 0 {
		b.SampleRate = rate
		return b
	}
	ratio := float64(b.SampleRate) / float64(rate)
	frames := int(float64(b.Frames()) / ratio)
	out := NewBuffer(rate, frames)
	for i := 0; i < frames; i++ {
		pos := float64(i) * ratio
		j := int(pos)
		frac := pos - float64(j)
		k := j + 1
		if k >= b.Frames() {
			k = b.Frames() - 1
		}
		out.L[i] = b.L[j]*(1-frac) + b.L[k]*frac
		out.R[i] = b.R[j]*(1-frac) + b.R[k]*frac
	}
	return out
}

// DBToLinear converts a gain in dB to a linear scale factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainDB converts the per-layer configured gain to linear and applies it.
func (b *Buffer) GainDB(db float64) {
	if db != 0 {
		b.Gain(DBToLinear(db))
	}
}
