// Package listen runs the voice front-end: wait for the wake phrase,
// duck other audio, record the command and hand the transcript to the
// assistant.
package listen

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"
)

// Recorder captures one utterance of 16 kHz mono PCM.
// audio.Recorder satisfies this.
type Recorder interface {
	Capture(ctx context.Context) ([]float32, error)
}

// Transcriber turns captured PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Ducker lowers and restores other audio streams while we listen.
type Ducker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Restore(ctx context.Context, duration time.Duration) error
}

// Chimer plays the acknowledgment tone.
type Chimer interface {
	Chime() error
}

// Config tunes the listener.
type Config struct {
	WakePhrase string        // e.g. "hey aide"
	DuckFactor float64       // other-stream volume multiplier while listening
	FadeTime   time.Duration // duck fade in/out
	Cooldown   time.Duration // pause after a failed capture before retrying
}

// DefaultConfig returns sensible listening defaults.
func DefaultConfig() Config {
	return Config{
		WakePhrase: "hey aide",
		DuckFactor: 0.3,
		FadeTime:   300 * time.Millisecond,
		Cooldown:   time.Second,
	}
}

// Listener owns the microphone loop.
type Listener struct {
	rec    Recorder
	stt    Transcriber
	duck   Ducker
	chime  Chimer
	submit func(string)
	cfg    Config

	triggers chan struct{}
}

// New wires a listener. duck and chime may be nil. submit receives each
// recognized command.
func New(rec Recorder, stt Transcriber, cfg Config, submit func(string)) *Listener {
	if cfg.WakePhrase == "" {
		cfg.WakePhrase = DefaultConfig().WakePhrase
	}
	if cfg.DuckFactor <= 0 || cfg.DuckFactor > 1 {
		cfg.DuckFactor = DefaultConfig().DuckFactor
	}
	return &Listener{
		rec:      rec,
		stt:      stt,
		cfg:      cfg,
		submit:   submit,
		triggers: make(chan struct{}, 1),
	}
}

// SetAudio attaches the optional ducking and chime collaborators.
func (l *Listener) SetAudio(d Ducker, c Chimer) { l.duck, l.chime = d, c }

// Trigger makes the listener record a command without the wake phrase,
// as if it had just been spoken. Extra triggers while one is pending are
// coalesced.
func (l *Listener) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
	}
}

// Run listens until the context is cancelled. Capture or recognition
// failures are logged and the loop keeps going.
func (l *Listener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.captureCommand(ctx)
			continue
		default:
		}

		text, err := l.listenOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Warn("capture failed", "err", err)
			l.sleep(ctx, l.cfg.Cooldown)
			continue
		}

		command, woke := l.stripWake(text)
		if !woke {
			continue
		}

		if command == "" {
			// Bare wake phrase: acknowledge and record the command
			// separately.
			l.captureCommand(ctx)
			continue
		}
		l.submit(command)
	}
}

// captureCommand is the post-wake path: chime, duck, record, transcribe.
func (l *Listener) captureCommand(ctx context.Context) {
	if l.chime != nil {
		if err := l.chime.Chime(); err != nil {
			log.Warn("chime failed", "err", err)
		}
	}
	if l.duck != nil {
		if err := l.duck.Duck(ctx, l.cfg.DuckFactor, l.cfg.FadeTime); err != nil {
			log.Warn("duck failed", "err", err)
		}
		defer func() {
			if err := l.duck.Restore(ctx, l.cfg.FadeTime); err != nil {
				log.Warn("restore failed", "err", err)
			}
		}()
	}

	text, err := l.listenOnce(ctx)
	if err != nil {
		log.Warn("command capture failed", "err", err)
		return
	}
	// Empty transcript still goes through: the assistant asks the user
	// to repeat instead of silently ignoring them.
	l.submit(text)
}

func (l *Listener) listenOnce(ctx context.Context) (string, error) {
	pcm, err := l.rec.Capture(ctx)
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}
	text, err := l.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// stripWake reports whether text contains the wake phrase and returns
// whatever follows it.
func (l *Listener) stripWake(text string) (string, bool) {
	plain := normalize(text)
	wake := strings.ToLower(l.cfg.WakePhrase)

	idx := strings.Index(strings.ToLower(plain), wake)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(plain[idx+len(wake):]), true
}

// normalize drops the punctuation the recognizer likes to insert inside
// the wake phrase ("Hey, Aide!").
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '!', '?':
			return -1
		}
		return r
	}, s)
}

func (l *Listener) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
