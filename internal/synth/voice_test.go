package synth

import (
	"testing"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

func TestFitVoiceToDuration_ShortClipLoops(t *testing.T) {
	sr := 8000
	base := constBuffer(t, sr, 2*sr, 0.5) // 2s clip

	out, err := FitVoiceToDuration(base, 10, 1)
	if err != nil {
		t.Fatalf("FitVoiceToDuration failed: %v", err)
	}

	if out.Frames() != 10*sr {
		t.Fatalf("expected exactly %d frames, got %d", 10*sr, out.Frames())
	}

	// Layout: 2s speech, 1s pause, 2s speech, ... — frame 2.5s is inside the
	// first pause, frame 3.5s inside the second repetition.
	if out.L[FramesFor(sr, 2.5)] != 0 {
		t.Error("expected silence during inter-repetition pause")
	}
	if out.L[FramesFor(sr, 3.5)] != 0.5 {
		t.Error("expected speech during second repetition")
	}
}

func TestFitVoiceToDuration_LongClipTrims(t *testing.T) {
	sr := 8000
	base := constBuffer(t, sr, 20*sr, 0.5) // 20s clip

	out, err := FitVoiceToDuration(base, 5, 2)
	if err != nil {
		t.Fatalf("FitVoiceToDuration failed: %v", err)
	}

	if out.Frames() != 5*sr {
		t.Errorf("expected exactly %d frames, got %d", 5*sr, out.Frames())
	}
	// Source is untouched
	if base.Frames() != 20*sr {
		t.Errorf("source was mutated to %d frames", base.Frames())
	}
}

func TestFitVoiceToDuration_ExactFit(t *testing.T) {
	sr := 8000
	base := constBuffer(t, sr, 5*sr, 0.5)

	out, err := FitVoiceToDuration(base, 5, 1)
	if err != nil {
		t.Fatalf("FitVoiceToDuration failed: %v", err)
	}
	if out.Frames() != 5*sr {
		t.Errorf("expected exactly %d frames, got %d", 5*sr, out.Frames())
	}
}

func TestFitVoiceToDuration_EmptyClip(t *testing.T) {
	_, err := FitVoiceToDuration(NewBuffer(8000, 0), 10, 1)
	if err == nil {
		t.Fatal("expected error for empty clip")
	}
	if !model.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}
