package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func classify(t *testing.T, utterance string) Intent {
	t.Helper()
	return NewClassifier(nil).Classify(context.Background(), utterance, t0)
}

func TestUnintelligibleInput(t *testing.T) {
	for _, utterance := range []string{"", "   ", "...", "!?!", "12 34"} {
		it := classify(t, utterance)
		assert.Equal(t, Unrecognized, it.Kind, "utterance %q", utterance)
	}
}

func TestPauseResume(t *testing.T) {
	assert.Equal(t, Pause, classify(t, "pause").Kind)
	assert.Equal(t, Pause, classify(t, "Stop listening").Kind)
	assert.Equal(t, Resume, classify(t, "resume").Kind)
	assert.Equal(t, Resume, classify(t, "wake up").Kind)

	// Only the exact phrases; "pause the music" is a command.
	assert.NotEqual(t, Pause, classify(t, "pause the music").Kind)
}

func TestReminderWithRelativeTime(t *testing.T) {
	it := classify(t, "remind me to call mom in 10 minutes")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "call mom", it.Param(ParamMessage))
	assert.Equal(t, t0.Add(10*time.Minute).Format(time.RFC3339), it.Param(ParamFireAt))
	assert.Equal(t, RecurNone, it.Param(ParamRecurrence))
}

func TestReminderWithClockTime(t *testing.T) {
	it := classify(t, "remind me to join the standup at 3pm")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "join the standup", it.Param(ParamMessage))

	want := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, want.Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderClockTimeAlreadyPast(t *testing.T) {
	// 9:00 reference; 8am has passed, so it means tomorrow morning.
	it := classify(t, "remind me to take my pills at 8am")
	require.Equal(t, SetReminder, it.Kind)

	want := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, want.Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderTomorrow(t *testing.T) {
	it := classify(t, "remind me tomorrow at 9:30 to water the plants")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "water the plants", it.Param(ParamMessage))

	want := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, want.Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderDefaultsOneHourOut(t *testing.T) {
	it := classify(t, "remind me to stretch")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "stretch", it.Param(ParamMessage))
	assert.Equal(t, t0.Add(time.Hour).Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderDaily(t *testing.T) {
	it := classify(t, "remind me every day at 8am to take my vitamins")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, RecurDaily, it.Param(ParamRecurrence))
	assert.Equal(t, "take my vitamins", it.Param(ParamMessage))

	// 8am has passed at the 9:00 reference, first firing is tomorrow.
	want := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, want.Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderInterval(t *testing.T) {
	it := classify(t, "remind me to drink water every 30 minutes")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, RecurInterval, it.Param(ParamRecurrence))
	assert.Equal(t, "30m0s", it.Param(ParamEvery))
	assert.Equal(t, "drink water", it.Param(ParamMessage))
	assert.Equal(t, t0.Add(30*time.Minute).Format(time.RFC3339), it.Param(ParamFireAt))
}

func TestReminderWithoutMessage(t *testing.T) {
	assert.Equal(t, Unrecognized, classify(t, "remind me").Kind)
	assert.Equal(t, Unrecognized, classify(t, "set a reminder in 5 minutes").Kind)
}

func TestListReminders(t *testing.T) {
	assert.Equal(t, ListReminders, classify(t, "what are my reminders").Kind)
	assert.Equal(t, ListReminders, classify(t, "show my reminders please").Kind)
}

func TestCancelReminder(t *testing.T) {
	it := classify(t, "cancel the reminder about the dentist")
	require.Equal(t, CancelReminder, it.Kind)
	assert.Equal(t, "the dentist", it.Param(ParamTarget))

	it = classify(t, "cancel my reminder")
	require.Equal(t, CancelReminder, it.Kind)
	assert.Empty(t, it.Param(ParamTarget))
}

func TestOpenApp(t *testing.T) {
	it := classify(t, "open firefox")
	require.Equal(t, OpenApp, it.Kind)
	assert.Equal(t, "firefox", it.Param(ParamApp))

	it = classify(t, "launch the music player")
	require.Equal(t, OpenApp, it.Kind)
	assert.Equal(t, "the music player", it.Param(ParamApp))
}

func TestWebSearch(t *testing.T) {
	it := classify(t, "search for weather in kyoto")
	require.Equal(t, WebSearch, it.Kind)
	assert.Equal(t, "weather in kyoto", it.Param(ParamQuery))

	it = classify(t, "look up train schedules")
	require.Equal(t, WebSearch, it.Kind)
	assert.Equal(t, "train schedules", it.Param(ParamQuery))
}

func TestSetPreference(t *testing.T) {
	it := classify(t, "remember that my favorite color is blue")
	require.Equal(t, SetPreference, it.Kind)
	assert.Equal(t, "my favorite color", it.Param(ParamKey))
	assert.Equal(t, "blue", it.Param(ParamValue))
}

func TestReminderMessageKeepsConnectives(t *testing.T) {
	// "that" and "to" inside the message body must survive; only the
	// lead-in around the trigger phrase gets stripped.
	it := classify(t, "remind me to fix the thing that broke in 10 minutes")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "fix the thing that broke", it.Param(ParamMessage))

	it = classify(t, "could you remind me to send the invoice at 3pm")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "send the invoice", it.Param(ParamMessage))
}

func TestReminderTrailingPlease(t *testing.T) {
	it := classify(t, "remind me to call mom in 5 minutes please")
	require.Equal(t, SetReminder, it.Kind)
	assert.Equal(t, "call mom", it.Param(ParamMessage))
}

func TestMoodAndActivityQueries(t *testing.T) {
	assert.Equal(t, Mood, classify(t, "how am I feeling").Kind)
	assert.Equal(t, Mood, classify(t, "what's my mood").Kind)
	assert.Equal(t, Activity, classify(t, "what have I been doing").Kind)
	assert.Equal(t, Activity, classify(t, "what did I do today").Kind)
}

func TestTimeAndDateQueries(t *testing.T) {
	assert.Equal(t, TimeQuery, classify(t, "what time is it").Kind)
	assert.Equal(t, DateQuery, classify(t, "what day is it").Kind)
	assert.Equal(t, DateQuery, classify(t, "what's the date").Kind)
}

func TestJoke(t *testing.T) {
	assert.Equal(t, Joke, classify(t, "tell me a joke").Kind)
	assert.Equal(t, Joke, classify(t, "another joke").Kind)
}

func TestVolumeControl(t *testing.T) {
	it := classify(t, "turn the volume up")
	require.Equal(t, Volume, it.Kind)
	assert.Equal(t, "up", it.Param(ParamDirection))

	it = classify(t, "volume down")
	require.Equal(t, Volume, it.Kind)
	assert.Equal(t, "down", it.Param(ParamDirection))

	it = classify(t, "mute")
	require.Equal(t, Volume, it.Kind)
	assert.Equal(t, "mute", it.Param(ParamDirection))

	it = classify(t, "set the volume to 40")
	require.Equal(t, Volume, it.Kind)
	assert.Equal(t, "set", it.Param(ParamDirection))
	assert.Equal(t, "40", it.Param(ParamLevel))
}

func TestBrightnessControl(t *testing.T) {
	it := classify(t, "turn the brightness down")
	require.Equal(t, Brightness, it.Kind)
	assert.Equal(t, "down", it.Param(ParamDirection))

	it = classify(t, "set brightness to 70")
	require.Equal(t, Brightness, it.Kind)
	assert.Equal(t, "set", it.Param(ParamDirection))
	assert.Equal(t, "70", it.Param(ParamLevel))
}

func TestScreenshot(t *testing.T) {
	assert.Equal(t, Screenshot, classify(t, "take a screenshot").Kind)
	assert.Equal(t, Screenshot, classify(t, "screenshot").Kind)
}

func TestDefaultsToChat(t *testing.T) {
	it := classify(t, "How was your day?")
	require.Equal(t, Chat, it.Kind)
	assert.Equal(t, "how was your day?", it.Param(ParamMessage))
}

func TestFallbackConsulted(t *testing.T) {
	called := false
	fallback := func(ctx context.Context, utterance string) (Intent, bool) {
		called = true
		return Intent{Kind: OpenApp, Params: map[string]string{ParamApp: "terminal"}}, true
	}
	c := NewClassifier(fallback)

	it := c.Classify(context.Background(), "bring up a shell for me", t0)
	assert.True(t, called)
	assert.Equal(t, OpenApp, it.Kind)

	// Rules win; the fallback never sees a matched utterance.
	called = false
	it = c.Classify(context.Background(), "open firefox", t0)
	assert.False(t, called)
	assert.Equal(t, OpenApp, it.Kind)
}

func TestFallbackDeclines(t *testing.T) {
	fallback := func(ctx context.Context, utterance string) (Intent, bool) {
		return Intent{}, false
	}
	it := NewClassifier(fallback).Classify(context.Background(), "tell me a story", t0)
	assert.Equal(t, Chat, it.Kind)
}
