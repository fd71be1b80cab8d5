package synth

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeAudio decodes provider-native audio bytes (WAV or MP3) into a stereo
// buffer at the engine sample rate. Mono sources are upmixed by duplication;
// foreign sample rates are resampled.
func DecodeAudio(data []byte, contentType string, sampleRate int) (*Buffer, error) {
	var (
		buf *Buffer
		err error
	)
	switch {
	case strings.Contains(contentType, "wav"), bytes.HasPrefix(data, []byte("RIFF")):
		buf, err = decodeWAV(data)
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"), looksLikeMP3(data):
		buf, err = decodeMP3(data)
	default:
		return nil, fmt.Errorf("unrecognized audio payload (content type %q)", contentType)
	}
	if err != nil {
		return nil, err
	}
	return buf.Resample(sampleRate), nil
}

func looksLikeMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels == 0 {
		return nil, fmt.Errorf("decode wav: missing format chunk")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	out := NewBuffer(pcm.Format.SampleRate, frames)
	for i := 0; i < frames; i++ {
		l := float64(pcm.Data[i*channels]) / scale
		r := l
		if channels > 1 {
			r = float64(pcm.Data[i*channels+1]) / scale
		}
		out.L[i] = l
		out.R[i] = r
	}
	return out, nil
}

// decodeMP3 decodes via hajimehoshi/go-mp3, which always yields 16-bit
// stereo interleaved PCM at the stream's sample rate.
func decodeMP3(data []byte) (*Buffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	frames := len(raw) / 4 // 2 channels × int16
	out := NewBuffer(dec.SampleRate(), frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		out.L[i] = float64(l) / 32768
		out.R[i] = float64(r) / 32768
	}
	return out, nil
}

// EncodeWAVFile writes the buffer to path as 16-bit stereo PCM WAV. The
// encoder needs a seekable writer for header fixups, so encoding goes through
// a job-private temp file rather than memory; callers upload and discard it.
func EncodeWAVFile(b *Buffer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, b.SampleRate, 16, 2, 1)

	const chunkFrames = 65536
	ints := make([]int, 0, chunkFrames*2)
	for off := 0; off < b.Frames(); off += chunkFrames {
		end := off + chunkFrames
		if end > b.Frames() {
			end = b.Frames()
		}
		ints = ints[:0]
		for i := off; i < end; i++ {
			ints = append(ints, pcm16(b.L[i]), pcm16(b.R[i]))
		}
		chunk := &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: b.SampleRate},
			Data:           ints,
			SourceBitDepth: 16,
		}
		if err := enc.Write(chunk); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func pcm16(v float64) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
