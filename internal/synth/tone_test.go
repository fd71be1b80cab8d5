package synth

import (
	"math"
	"testing"

	"github.com/AlchemyApps/mindScript-sub006/internal/model"
)

// countZeroCrossings counts upward zero crossings, one per cycle for a sine.
func countZeroCrossings(samples []float64) int {
	n := 0
	for i := 1; i < len(samples); i++ {
		if samples[i-1] < 0 && samples[i] >= 0 {
			n++
		}
	}
	return n
}

func TestBinauralTone_ChannelFrequencies(t *testing.T) {
	sr := 8000
	buf, err := BinauralTone(sr, model.BandTheta, 2)
	if err != nil {
		t.Fatalf("BinauralTone failed: %v", err)
	}

	if buf.Frames() != 2*sr {
		t.Fatalf("expected %d frames, got %d", 2*sr, buf.Frames())
	}

	// Over 2 seconds: left carrier 200 Hz → 400 cycles, right 206 Hz → 412.
	left := countZeroCrossings(buf.L)
	right := countZeroCrossings(buf.R)
	if left < 399 || left > 401 {
		t.Errorf("expected ~400 left cycles, got %d", left)
	}
	if right < 411 || right > 413 {
		t.Errorf("expected ~412 right cycles, got %d", right)
	}
	if diff := right - left; diff < 11 || diff > 13 {
		t.Errorf("expected beat of ~12 cycles over 2s (6 Hz), got %d", diff)
	}
}

func TestBinauralTone_UnknownBand(t *testing.T) {
	_, err := BinauralTone(8000, model.Band("epsilon"), 1)
	if err == nil {
		t.Fatal("expected error for unknown band")
	}
	if !model.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestBinauralTone_AllBands(t *testing.T) {
	for _, band := range model.ValidBands {
		if _, err := BinauralTone(8000, band, 0.1); err != nil {
			t.Errorf("band %s: %v", band, err)
		}
	}
}

func TestSolfeggioTone(t *testing.T) {
	sr := 8000
	buf := SolfeggioTone(sr, 528, 1)

	if buf.Frames() != sr {
		t.Fatalf("expected %d frames, got %d", sr, buf.Frames())
	}

	cycles := countZeroCrossings(buf.L)
	if cycles < 527 || cycles > 529 {
		t.Errorf("expected ~528 cycles, got %d", cycles)
	}

	// Identical on both channels
	for i := 0; i < buf.Frames(); i += 997 {
		if buf.L[i] != buf.R[i] {
			t.Fatalf("channels differ at frame %d", i)
		}
	}
}

func TestSilence(t *testing.T) {
	buf := Silence(8000, 1.5)
	if buf.Frames() != 12000 {
		t.Fatalf("expected 12000 frames, got %d", buf.Frames())
	}
	if buf.Peak() != 0 {
		t.Errorf("expected silent buffer, peak %v", buf.Peak())
	}
}

func TestTone_Amplitude(t *testing.T) {
	buf := SolfeggioTone(8000, 440, 1)
	peak := buf.Peak()
	if math.Abs(peak-1) > 0.001 {
		t.Errorf("expected unit amplitude, got %v", peak)
	}
}
