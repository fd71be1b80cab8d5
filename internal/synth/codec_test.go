package synth

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeDecodeWAV(t *testing.T) {
	sr := 8000
	src := sineBuffer(t, sr, 440, 0.8, 2)

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := EncodeWAVFile(src, path); err != nil {
		t.Fatalf("EncodeWAVFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read encoded file: %v", err)
	}

	got, err := DecodeAudio(data, "audio/wav", sr)
	if err != nil {
		t.Fatalf("DecodeAudio failed: %v", err)
	}

	if got.Frames() != src.Frames() {
		t.Fatalf("expected %d frames, got %d", src.Frames(), got.Frames())
	}
	if got.SampleRate != sr {
		t.Fatalf("expected sample rate %d, got %d", sr, got.SampleRate)
	}

	// 16-bit quantization noise only
	for i := 0; i < got.Frames(); i += 389 {
		if math.Abs(got.L[i]-src.L[i]) > 0.001 {
			t.Fatalf("frame %d: expected %v, got %v", i, src.L[i], got.L[i])
		}
	}
}

func TestDecodeAudio_ResamplesForeignRate(t *testing.T) {
	src := sineBuffer(t, 16000, 440, 0.5, 1)

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := EncodeWAVFile(src, path); err != nil {
		t.Fatalf("EncodeWAVFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read encoded file: %v", err)
	}

	got, err := DecodeAudio(data, "audio/wav", 8000)
	if err != nil {
		t.Fatalf("DecodeAudio failed: %v", err)
	}
	if got.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", got.SampleRate)
	}
	if math.Abs(got.Duration()-1) > 0.01 {
		t.Errorf("expected ~1s after resample, got %v", got.Duration())
	}
}

func TestDecodeAudio_Unrecognized(t *testing.T) {
	if _, err := DecodeAudio([]byte("not audio at all"), "text/plain", 8000); err == nil {
		t.Fatal("expected error for unrecognized payload")
	}
}

func TestDecodeAudio_SniffsRIFF(t *testing.T) {
	src := sineBuffer(t, 8000, 440, 0.5, 1)
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := EncodeWAVFile(src, path); err != nil {
		t.Fatalf("EncodeWAVFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read encoded file: %v", err)
	}

	// Empty content type forces magic-byte sniffing
	if _, err := DecodeAudio(data, "", 8000); err != nil {
		t.Errorf("expected RIFF sniffing to succeed, got %v", err)
	}
}
