package synth

import "github.com/AlchemyApps/mindScript-sub006/internal/model"

// FitVoiceToDuration fits a synthesized narration clip to exactly the target
// duration. A clip shorter than the target is repeated with pauseSeconds of
// silence between repetitions until the cumulative length reaches the target,
// then the final repetition is trimmed so the total is exact. A clip at or
// above the target is trimmed outright.
func FitVoiceToDuration(base *Buffer, targetSeconds, pauseSeconds float64) (*Buffer, error) {
	if base == nil || base.Frames() == 0 {
		return nil, &model.ConfigError{Field: "voice", Message: "narration clip is empty"}
	}

	targetFrames := FramesFor(base.SampleRate, targetSeconds)

	out := base.Clone()
	for out.Frames() < targetFrames {
		out.AppendSilence(pauseSeconds)
		out.Append(base)
	}
	out.TrimFrames(targetFrames)
	return out, nil
}
