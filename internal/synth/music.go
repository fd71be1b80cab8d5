package synth

import "github.com/AlchemyApps/mindScript-sub006/internal/model"

// PrepareMusicLayer fits a background music asset to exactly the target
// duration. A shorter asset is looped with an equal-power crossfade at every
// loop boundary until it covers the target, then trimmed to the exact frame
// count. A longer asset is trimmed with a fade-in at the head. Either way the
// tail gets a fade-out so the layer never ends on a hard cut.
func PrepareMusicLayer(src *Buffer, targetSeconds, crossfadeSeconds, edgeFadeSeconds float64) (*Buffer, error) {
	if src == nil || src.Frames() == 0 {
		return nil, &model.ConfigError{Field: "backgroundMusic", Message: "music source decoded to no audio"}
	}

	targetFrames := FramesFor(src.SampleRate, targetSeconds)

	var out *Buffer
	if src.Frames() >= targetFrames {
		out = src.Slice(0, targetFrames)
		out.FadeIn(edgeFadeSeconds)
	} else {
		out = src.Clone()
		for out.Frames() < targetFrames {
			out.AppendCrossfade(src, crossfadeSeconds)
		}
		out.TrimFrames(targetFrames)
	}
	out.FadeOut(edgeFadeSeconds)
	return out, nil
}
