package synth

import (
	"fmt"
	"math"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

// BinauralCarrierHz is the fixed left-channel carrier for binaural layers.
// The right channel runs at carrier + band beat frequency, so the perceived
// pulsation equals the band frequency.
const BinauralCarrierHz = 200.0

// BinauralTone generates a stereo binaural-beat signal of the given duration.
// The band is resolved through the band frequency table before any sample is
// generated; an unknown band is a ConfigError.
//
// Samples are computed in process. Tone generation must never depend on an
// optional input of an external media tool: a missing filter-graph source in
// some deployments took down rendering in the system this replaces.
func BinauralTone(sampleRate int, band model.Band, seconds float64) (*Buffer, error) {
	beat, ok := band.BeatFrequency()
	if !ok {
		return nil, &model.ConfigError{
			Field:   "binaural.band",
			Message: fmt.Sprintf("unknown band %q", band),
		}
	}

	buf := NewBuffer(sampleRate, FramesFor(sampleRate, seconds))
	leftStep := 2 * math.Pi * BinauralCarrierHz / float64(sampleRate)
	rightStep := 2 * math.Pi * (BinauralCarrierHz + beat) / float64(sampleRate)
	for i := range buf.L {
		buf.L[i] = math.Sin(leftStep * float64(i))
		buf.R[i] = math.Sin(rightStep * float64(i))
	}
	return buf, nil
}

// SolfeggioTone generates a sine tone at an explicit frequency, duplicated to
// both channels. Same in-process constraint as BinauralTone.
func SolfeggioTone(sampleRate int, frequencyHz, seconds float64) *Buffer {
	buf := NewBuffer(sampleRate, FramesFor(sampleRate, seconds))
	step := 2 * math.Pi * frequencyHz / float64(sampleRate)
	for i := range buf.L {
		s := math.Sin(step * float64(i))
		buf.L[i] = s
		buf.R[i] = s
	}
	return buf
}

// Silence returns a zero-sample stereo buffer of the given duration, used for
// inter-repetition gaps and padding.
func Silence(sampleRate int, seconds float64) *Buffer {
	return NewBuffer(sampleRate, FramesFor(sampleRate, seconds))
}
