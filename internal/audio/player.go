package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Player pushes decoded MP3 audio to the default output device. Used for
// synthesized speech and the notification chime.
type Player struct {
	chimePath string
}

// NewPlayer takes the path of the chime sample; empty disables the chime.
func NewPlayer(chimePath string) *Player {
	return &Player{chimePath: chimePath}
}

// PlayMP3 decodes rc and plays it, blocking until playback finishes.
func (p *Player) PlayMP3(rc io.ReadCloser) error {
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}

// Chime plays the attention sound before listening and on notifications.
func (p *Player) Chime() error {
	if p.chimePath == "" {
		return nil
	}
	f, err := os.Open(p.chimePath)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	return p.PlayMP3(f)
}
