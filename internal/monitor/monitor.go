// Package monitor samples what the user is doing in the background:
// foreground window, optional on-screen text, optional facial emotion.
// Samples are appended to the store; a slow or failing source is skipped
// for that tick and never blocks the rest.
package monitor

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"aide/internal/store"
)

// ActivityRecord is one foreground-window observation. Duration counts
// how long the window has been in front at sampling time.
type ActivityRecord struct {
	AppName     string        `json:"app_name"`
	WindowTitle string        `json:"window_title"`
	OCRText     string        `json:"ocr_text,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
}

// EmotionSample is one facial-emotion observation.
type EmotionSample struct {
	Label      string    `json:"emotion_label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// WindowSample identifies the foreground window.
type WindowSample struct {
	App   string
	Title string
}

// WindowSampler reads the foreground window.
type WindowSampler interface {
	Sample(ctx context.Context) (WindowSample, error)
}

// TextSampler extracts visible screen text (OCR).
type TextSampler interface {
	Sample(ctx context.Context) (string, error)
}

// EmotionSampler classifies the user's current facial expression.
type EmotionSampler interface {
	Sample(ctx context.Context) (label string, confidence float64, err error)
}

const defaultSourceTimeout = 3 * time.Second

// Monitor drives the sample sources on each tick. ocr and emotion may be
// nil when the machine has no such capability.
type Monitor struct {
	st      *store.Store
	window  WindowSampler
	ocr     TextSampler
	emotion EmotionSampler
	timeout time.Duration

	currentApp   string
	currentTitle string
	since        time.Time
}

// New builds a monitor writing into st. window is required.
func New(st *store.Store, window WindowSampler, ocr TextSampler, emotion EmotionSampler) *Monitor {
	return &Monitor{
		st:      st,
		window:  window,
		ocr:     ocr,
		emotion: emotion,
		timeout: defaultSourceTimeout,
	}
}

// SetSourceTimeout bounds how long any single sample source may take.
func (m *Monitor) SetSourceTimeout(d time.Duration) {
	if d > 0 {
		m.timeout = d
	}
}

// Tick takes one round of samples at now. Source failures are logged and
// skipped; store write failures are logged and the daemon carries on.
func (m *Monitor) Tick(ctx context.Context, now time.Time) {
	m.sampleActivity(ctx, now)
	m.sampleEmotion(ctx, now)
}

func (m *Monitor) sampleActivity(ctx context.Context, now time.Time) {
	if m.window == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, m.timeout)
	win, err := m.window.Sample(sctx)
	cancel()
	if err != nil {
		log.Debug("window sample skipped", "err", err)
		return
	}

	if win.App != m.currentApp || win.Title != m.currentTitle {
		m.currentApp, m.currentTitle = win.App, win.Title
		m.since = now
	}

	rec := ActivityRecord{
		AppName:     win.App,
		WindowTitle: win.Title,
		Timestamp:   now,
		Duration:    now.Sub(m.since),
	}

	if m.ocr != nil {
		octx, cancel := context.WithTimeout(ctx, m.timeout)
		text, err := m.ocr.Sample(octx)
		cancel()
		if err != nil {
			log.Debug("ocr sample skipped", "err", err)
		} else {
			rec.OCRText = text
		}
	}

	if _, err := m.st.Append(store.Activity, rec); err != nil {
		logStoreErr("activity", err)
	}
}

func (m *Monitor) sampleEmotion(ctx context.Context, now time.Time) {
	if m.emotion == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, m.timeout)
	label, confidence, err := m.emotion.Sample(sctx)
	cancel()
	if err != nil {
		log.Debug("emotion sample skipped", "err", err)
		return
	}

	sample := EmotionSample{Label: label, Confidence: confidence, Timestamp: now}
	if _, err := m.st.Append(store.Emotions, sample); err != nil {
		logStoreErr("emotion", err)
	}
}

func logStoreErr(what string, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		log.Warn("storage unavailable, keeping samples in memory only", "collection", what)
		return
	}
	log.Error("failed to record sample", "collection", what, "err", err)
}
