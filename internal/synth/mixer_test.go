package synth

import (
	"math"
	"testing"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

func TestMix_SumsWithGain(t *testing.T) {
	sr := 8000
	voice := constBuffer(t, sr, sr, 0.5)
	music := constBuffer(t, sr, sr, 0.5)

	mix, err := Mix([]Layer{
		{Kind: model.LayerVoice, Buf: voice, GainDB: 0},
		{Kind: model.LayerMusic, Buf: music, GainDB: -6},
	})
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	want := 0.5 + 0.5*math.Pow(10, -6.0/20)
	if math.Abs(mix.L[100]-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, mix.L[100])
	}
	if mix.Frames() != sr {
		t.Errorf("expected %d frames, got %d", sr, mix.Frames())
	}
}

func TestMix_RejectsMismatchedLayers(t *testing.T) {
	sr := 8000
	a := constBuffer(t, sr, sr, 0.5)
	b := constBuffer(t, sr, sr/2, 0.5)

	_, err := Mix([]Layer{
		{Kind: model.LayerVoice, Buf: a},
		{Kind: model.LayerMusic, Buf: b},
	})
	if err == nil {
		t.Fatal("expected error for mismatched frame counts")
	}
	if !model.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestMix_RejectsEmpty(t *testing.T) {
	if _, err := Mix(nil); err == nil {
		t.Fatal("expected error for empty layer list")
	}
}

func TestExtractPreview(t *testing.T) {
	sr := 8000
	mix := constBuffer(t, sr, 120*sr, 0.7)

	clip := ExtractPreview(mix, 30, 15, 1)
	if clip.Frames() != 15*sr {
		t.Fatalf("expected %d frames, got %d", 15*sr, clip.Frames())
	}
	if clip.L[0] != 0 {
		t.Error("expected faded head")
	}
	if clip.L[7*sr] != 0.7 {
		t.Errorf("expected untouched middle, got %v", clip.L[7*sr])
	}
}

func TestExtractPreview_ShortMix(t *testing.T) {
	sr := 8000
	mix := constBuffer(t, sr, 10*sr, 0.7)

	// Offset beyond the mix gets pulled back; a mix shorter than the preview
	// yields the whole mix.
	clip := ExtractPreview(mix, 30, 15, 1)
	if clip.Frames() != 10*sr {
		t.Errorf("expected %d frames, got %d", 10*sr, clip.Frames())
	}
}
