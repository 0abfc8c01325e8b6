package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/store"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fakeWindow struct {
	sample WindowSample
	err    error
	block  bool
}

func (f *fakeWindow) Sample(ctx context.Context) (WindowSample, error) {
	if f.block {
		<-ctx.Done()
		return WindowSample{}, ctx.Err()
	}
	return f.sample, f.err
}

type fakeEmotion struct {
	label      string
	confidence float64
	err        error
}

func (f *fakeEmotion) Sample(ctx context.Context) (string, float64, error) {
	return f.label, f.confidence, f.err
}

func readActivity(t *testing.T, st *store.Store) []ActivityRecord {
	t.Helper()
	recs, err := st.ReadAll(store.Activity)
	require.NoError(t, err)

	out := make([]ActivityRecord, len(recs))
	for i, rec := range recs {
		require.NoError(t, json.Unmarshal(rec.Data, &out[i]))
	}
	return out
}

func TestTickRecordsActivity(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{sample: WindowSample{App: "firefox", Title: "news"}}
	m := New(st, win, nil, nil)

	m.Tick(context.Background(), t0)

	recs := readActivity(t, st)
	require.Len(t, recs, 1)
	assert.Equal(t, "firefox", recs[0].AppName)
	assert.Equal(t, "news", recs[0].WindowTitle)
	assert.Zero(t, recs[0].Duration)
}

func TestDurationAccumulatesWhileWindowUnchanged(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{sample: WindowSample{App: "code", Title: "main.go"}}
	m := New(st, win, nil, nil)

	m.Tick(context.Background(), t0)
	m.Tick(context.Background(), t0.Add(5*time.Second))
	m.Tick(context.Background(), t0.Add(10*time.Second))

	recs := readActivity(t, st)
	require.Len(t, recs, 3)
	assert.Equal(t, time.Duration(0), recs[0].Duration)
	assert.Equal(t, 5*time.Second, recs[1].Duration)
	assert.Equal(t, 10*time.Second, recs[2].Duration)

	// Switching windows resets the clock.
	win.sample = WindowSample{App: "firefox", Title: "docs"}
	m.Tick(context.Background(), t0.Add(15*time.Second))

	recs = readActivity(t, st)
	require.Len(t, recs, 4)
	assert.Zero(t, recs[3].Duration)
}

func TestFailingWindowSourceSkipsTick(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{err: errors.New("no display")}
	m := New(st, win, nil, nil)

	m.Tick(context.Background(), t0)

	recs, err := st.ReadAll(store.Activity)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSlowSourceIsCutOff(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{block: true}
	m := New(st, win, nil, nil)
	m.SetSourceTimeout(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Tick(context.Background(), t0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick did not return after the source timeout")
	}

	recs, err := st.ReadAll(store.Activity)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Sample(ctx context.Context) (string, error) { return f.text, f.err }

func TestOCRFailureStillRecordsWindow(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{sample: WindowSample{App: "code", Title: "main.go"}}
	m := New(st, win, fakeOCR{err: errors.New("tesseract missing")}, nil)

	m.Tick(context.Background(), t0)

	recs := readActivity(t, st)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].OCRText)
}

func TestEmotionSampling(t *testing.T) {
	st := store.OpenMemory()
	win := &fakeWindow{sample: WindowSample{App: "code", Title: "main.go"}}
	m := New(st, win, nil, &fakeEmotion{label: "focused", confidence: 0.9})

	m.Tick(context.Background(), t0)

	recs, err := st.ReadAll(store.Emotions)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	var sample EmotionSample
	require.NoError(t, json.Unmarshal(recs[0].Data, &sample))
	assert.Equal(t, "focused", sample.Label)
	assert.Equal(t, 0.9, sample.Confidence)
}
