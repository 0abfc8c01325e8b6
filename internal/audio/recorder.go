// Package audio owns the machine's sound I/O: microphone capture with
// silence end-pointing, playback of synthesized speech, the notification
// chime, and ducking of other applications' streams.
package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// SampleRate is the capture rate; whisper expects 16 kHz mono.
const SampleRate = 16000

// RecorderConfig tunes the voice end-pointing.
type RecorderConfig struct {
	SilenceRMS     float64       // frames below this count as silence
	SilenceAfter   time.Duration // this much trailing silence ends capture
	MaxUtterance   time.Duration // hard cap per capture
	FrameSize      int           // samples per frame
}

// DefaultRecorderConfig matches a quiet room and short commands.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SilenceRMS:   0.015,
		SilenceAfter: 600 * time.Millisecond,
		MaxUtterance: 10 * time.Second,
		FrameSize:    320, // 20 ms at 16 kHz
	}
}

// Recorder captures mono 16 kHz PCM from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.FrameSize <= 0 {
		cfg = DefaultRecorderConfig()
	}
	return &Recorder{cfg: cfg}
}

// Init sets up portaudio; call once per process.
func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records until the speaker stops talking: it waits for speech,
// then stops after SilenceAfter of trailing quiet or at MaxUtterance.
// Cancelling the context stops capture and returns what was heard so far.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.cfg.FrameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameDur := time.Duration(r.cfg.FrameSize) * time.Second / SampleRate
	maxFrames := int(r.cfg.MaxUtterance / frameDur)
	silenceFrames := int(r.cfg.SilenceAfter / frameDur)

	var (
		speaking bool
		quiet    int
	)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.cfg.SilenceRMS {
			speaking = true
			quiet = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			quiet++
			if quiet >= silenceFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no speech captured")
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
