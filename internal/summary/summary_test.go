package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/chat"
	"aide/internal/monitor"
	"aide/internal/reminder"
	"aide/internal/store"
)

var day = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func appendActivity(t *testing.T, st *store.Store, app, title string, at time.Time, dur time.Duration) {
	t.Helper()
	_, err := st.Append(store.Activity, monitor.ActivityRecord{
		AppName:     app,
		WindowTitle: title,
		Timestamp:   at,
		Duration:    dur,
	})
	require.NoError(t, err)
}

func TestAppUsageCountsLastSampleOfEachRun(t *testing.T) {
	st := store.OpenMemory()

	// One run of "code": the running duration grows each tick, only the
	// final sample counts.
	appendActivity(t, st, "code", "main.go", day, 0)
	appendActivity(t, st, "code", "main.go", day.Add(5*time.Second), 5*time.Second)
	appendActivity(t, st, "code", "main.go", day.Add(10*time.Second), 10*time.Second)
	// Then a run of "firefox".
	appendActivity(t, st, "firefox", "docs", day.Add(15*time.Second), 0)
	appendActivity(t, st, "firefox", "docs", day.Add(20*time.Second), 5*time.Second)
	// Back to "code": a separate run, totals add up.
	appendActivity(t, st, "code", "main.go", day.Add(25*time.Second), 0)
	appendActivity(t, st, "code", "main.go", day.Add(30*time.Second), 5*time.Second)

	s, err := Generate(st, nil, day)
	require.NoError(t, err)

	require.Len(t, s.TopApps, 2)
	assert.Equal(t, "code", s.TopApps[0].App)
	assert.Equal(t, 15*time.Second, s.TopApps[0].Duration)
	assert.Equal(t, "firefox", s.TopApps[1].App)
	assert.Equal(t, 5*time.Second, s.TopApps[1].Duration)
}

func TestOtherDaysAreExcluded(t *testing.T) {
	st := store.OpenMemory()

	yesterday := day.Add(-24 * time.Hour)
	appendActivity(t, st, "games", "solitaire", yesterday, time.Hour)
	appendActivity(t, st, "code", "main.go", day, 10*time.Second)

	_, err := st.Append(store.Emotions, monitor.EmotionSample{Label: "tired", Timestamp: yesterday})
	require.NoError(t, err)
	_, err = st.Append(store.Emotions, monitor.EmotionSample{Label: "happy", Timestamp: day})
	require.NoError(t, err)

	_, err = st.Append(store.Conversation, chat.Turn{Role: chat.RoleUser, Text: "old", Timestamp: yesterday})
	require.NoError(t, err)
	_, err = st.Append(store.Conversation, chat.Turn{Role: chat.RoleUser, Text: "hi", Timestamp: day})
	require.NoError(t, err)
	_, err = st.Append(store.Conversation, chat.Turn{Role: chat.RoleAssistant, Text: "hello", Timestamp: day})
	require.NoError(t, err)

	s, err := Generate(st, nil, day)
	require.NoError(t, err)

	require.Len(t, s.TopApps, 1)
	assert.Equal(t, "code", s.TopApps[0].App)

	assert.Equal(t, map[string]int{"happy": 1}, s.EmotionCounts)
	assert.Equal(t, "happy", s.DominantEmotion)

	// Only user turns count as exchanges.
	assert.Equal(t, 1, s.Exchanges)
}

func TestUpcomingReminders(t *testing.T) {
	st := store.OpenMemory()
	sched, err := reminder.NewScheduler(st, day)
	require.NoError(t, err)
	_, err = sched.Add(reminder.Reminder{Message: "dentist", FireAt: day.Add(time.Hour)}, day)
	require.NoError(t, err)

	s, err := Generate(st, sched, day)
	require.NoError(t, err)

	require.Len(t, s.Upcoming, 1)
	assert.Equal(t, "dentist", s.Upcoming[0].Message)
}

func TestRender(t *testing.T) {
	st := store.OpenMemory()
	appendActivity(t, st, "code", "main.go", day, 25*time.Minute)
	_, err := st.Append(store.Emotions, monitor.EmotionSample{Label: "focused", Timestamp: day})
	require.NoError(t, err)

	s, err := Generate(st, nil, day)
	require.NoError(t, err)

	out := s.Render()
	assert.Contains(t, out, "Saturday, March 14")
	assert.Contains(t, out, "code")
	assert.Contains(t, out, "focused")
}

func TestRenderEmptyDay(t *testing.T) {
	s, err := Generate(store.OpenMemory(), nil, day)
	require.NoError(t, err)

	out := s.Render()
	assert.Contains(t, out, "No activity recorded")
}
