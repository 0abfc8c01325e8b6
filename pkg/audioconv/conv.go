// Package audioconv decodes recorded audio files (wav, mp3, ogg-vorbis)
// into the mono 16 kHz float32 PCM that the transcriber consumes.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// TargetRate is what the transcriber expects.
const TargetRate = 16000

// DecodeFile sniffs the format from the extension (falling back to magic
// bytes) and returns mono PCM at TargetRate.
func DecodeFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga":
		return decodeOgg(f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	default:
		return nil, fmt.Errorf("unsupported audio format in %s (wav, mp3 and ogg-vorbis are accepted)", filepath.Base(path))
	}
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav file")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	pcm := make([]float32, len(pb.Data))
	for i, v := range pb.Data {
		pcm[i] = float32(v) / scale
	}

	channels, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	return normalize(pcm, channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	pcm := make([]float32, len(ints))
	for i, v := range ints {
		pcm[i] = float32(v) / 32768
	}

	// The decoder always emits interleaved stereo.
	return normalize(pcm, 2, dec.SampleRate()), nil
}

func decodeOgg(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg-vorbis stream")
	}
	return normalize(pcm, format.Channels, format.SampleRate), nil
}

// normalize downmixes interleaved channels and resamples to TargetRate.
func normalize(pcm []float32, channels, rate int) []float32 {
	if channels > 1 {
		mono := make([]float32, len(pcm)/channels)
		for i := range mono {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += pcm[i*channels+c]
			}
			mono[i] = sum / float32(channels)
		}
		pcm = mono
	}
	if rate <= 0 {
		rate = 44100
	}
	if rate != TargetRate {
		pcm = resample(pcm, rate, TargetRate)
	}
	return pcm
}

// resample does linear interpolation; plenty for speech input.
func resample(in []float32, from, to int) []float32 {
	if len(in) == 0 || from == to {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}
