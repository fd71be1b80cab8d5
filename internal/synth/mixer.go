package synth

import (
	"fmt"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

// Layer pairs a prepared buffer with its kind and configured gain, ready for
// summation.
type Layer struct {
	Kind   model.LayerKind
	Buf    *Buffer
	GainDB float64
}

// Mix sums the layers into a single stereo buffer, applying each layer's gain
// before summation. Every layer must already be trimmed to the same frame
// count and sample rate; a mismatch is invalid input, not a transient fault.
func Mix(layers []Layer) (*Buffer, error) {
	if len(layers) == 0 {
		return nil, &model.ConfigError{Field: "layers", Message: "no layers to mix"}
	}

	frames := layers[0].Buf.Frames()
	rate := layers[0].Buf.SampleRate
	for _, l := range layers {
		if l.Buf == nil || l.Buf.Frames() == 0 {
			return nil, &model.ConfigError{Field: string(l.Kind), Message: "layer has no audio"}
		}
		if l.Buf.Frames() != frames || l.Buf.SampleRate != rate {
			return nil, &model.ConfigError{
				Field: string(l.Kind),
				Message: fmt.Sprintf("layer not normalized: %d frames @ %d Hz, want %d @ %d",
					l.Buf.Frames(), l.Buf.SampleRate, frames, rate),
			}
		}
	}

	mix := NewBuffer(rate, frames)
	for _, l := range layers {
		g := DBToLinear(l.GainDB)
		for i := 0; i < frames; i++ {
			mix.L[i] += l.Buf.L[i] * g
			mix.R[i] += l.Buf.R[i] * g
		}
	}
	return mix, nil
}

// ExtractPreview copies a short clip out of the final mix with gentle edge
// fades. The offset is pulled back when the mix is too short to fit a full
// preview after it.
func ExtractPreview(mix *Buffer, offsetSeconds, lengthSeconds, fadeSeconds float64) *Buffer {
	length := FramesFor(mix.SampleRate, lengthSeconds)
	if length > mix.Frames() {
		length = mix.Frames()
	}
	offset := FramesFor(mix.SampleRate, offsetSeconds)
	if offset+length > mix.Frames() {
		offset = mix.Frames() - length
	}

	clip := mix.Slice(offset, length)
	clip.FadeIn(fadeSeconds)
	clip.FadeOut(fadeSeconds)
	return clip
}
