package assist

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"aide/internal/chat"
	"aide/internal/intent"
	"aide/internal/reminder"
	"aide/internal/summary"
)

const (
	apology       = "I couldn't do that. Something went wrong on my side."
	clarification = "I didn't catch that. Could you say it again?"
)

// safeDispatch is the dispatch boundary: whatever a handler does, the
// caller gets a response string back and the loop survives. history is
// the conversation as it stood before the current utterance.
func (o *Orchestrator) safeDispatch(ctx context.Context, it intent.Intent, ev utteranceEvent, history []chat.Turn) (resp string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "kind", it.Kind, "panic", r)
			resp = apology
		}
	}()
	return o.dispatch(ctx, it, ev, history)
}

// dispatch is total over intent kinds; unknown kinds fall through to the
// clarification response rather than being dropped.
func (o *Orchestrator) dispatch(ctx context.Context, it intent.Intent, ev utteranceEvent, history []chat.Turn) string {
	switch it.Kind {
	case intent.Chat:
		return o.completeChat(ctx, history, ev.text)
	case intent.SetReminder:
		return o.handleSetReminder(it, ev.at)
	case intent.ListReminders:
		return o.handleListReminders()
	case intent.CancelReminder:
		return o.handleCancelReminder(it)
	case intent.SetPreference:
		return o.handleSetPreference(it)
	case intent.OpenApp:
		return o.handleOpenApp(ctx, it)
	case intent.WebSearch:
		return o.handleWebSearch(ctx, it)
	case intent.Mood:
		return o.handleMood(ev.at)
	case intent.Activity:
		return o.handleActivity(ev.at)
	case intent.TimeQuery:
		return "It's " + ev.at.Format("3:04 PM") + "."
	case intent.DateQuery:
		return "Today is " + ev.at.Format("Monday, January 2") + "."
	case intent.Joke:
		return o.nextJoke()
	case intent.Volume:
		return o.handleVolume(ctx, it)
	case intent.Brightness:
		return o.handleBrightness(ctx, it)
	case intent.Screenshot:
		return o.handleScreenshot(ctx)
	case intent.Pause:
		// Already handled by the pause gate; nothing left to do.
		return ""
	case intent.Resume:
		// Only reaches dispatch when there was nothing to resume.
		return "I'm already listening."
	case intent.Unrecognized:
		return clarification
	default:
		log.Warn("unknown intent kind", "kind", it.Kind)
		return clarification
	}
}

func (o *Orchestrator) completeChat(ctx context.Context, history []chat.Turn, prompt string) string {
	if o.backend == nil {
		return "I have no chat backend configured right now."
	}
	resp, err := o.backend.Complete(ctx, history, prompt)
	if err != nil {
		log.Error("chat completion failed", "err", err)
		return "I'm having trouble reaching my brain right now. Try again in a bit."
	}
	return resp
}

func (o *Orchestrator) handleSetReminder(it intent.Intent, now time.Time) string {
	fireAt, err := time.Parse(time.RFC3339, it.Param(intent.ParamFireAt))
	if err != nil && it.Param(intent.ParamRecurrence) != intent.RecurInterval {
		return "I couldn't work out when to remind you. Could you give me a time?"
	}

	r := reminder.Reminder{
		Message: it.Param(intent.ParamMessage),
		FireAt:  fireAt,
		Recurrence: reminder.Recurrence{
			Kind:  recurrenceKind(it.Param(intent.ParamRecurrence)),
			Every: it.Param(intent.ParamEvery),
		},
	}

	_, err = o.sched.Add(r, now)
	switch {
	case errors.Is(err, reminder.ErrInvalidSchedule):
		return "That time has already passed, so I didn't set the reminder."
	case err != nil:
		o.warnStorage(err)
	}

	// The scheduler anchors interval reminders itself when no explicit
	// time was given; mirror that for the confirmation.
	if r.FireAt.IsZero() {
		if period, perr := r.Recurrence.Period(); perr == nil {
			r.FireAt = now.Add(period)
		}
	}

	confirm := fmt.Sprintf("I'll remind you to %s at %s", r.Message, describeTime(r.FireAt, now))
	if freq := describeRecurrence(r.Recurrence); freq != "" {
		confirm += ", " + freq
	}
	return confirm + "."
}

func (o *Orchestrator) handleListReminders() string {
	upcoming := o.sched.Upcoming(10)
	if len(upcoming) == 0 {
		return "You don't have any upcoming reminders."
	}

	var b strings.Builder
	b.WriteString("Here are your upcoming reminders: ")
	for i, r := range upcoming {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s at %s", r.Message, r.FireAt.Format("3:04 PM on Monday"))
	}
	return b.String() + "."
}

func (o *Orchestrator) handleCancelReminder(it intent.Intent) string {
	target := it.Param(intent.ParamTarget)

	r, ok := o.sched.Find(target)
	if !ok && target == "" {
		// No description given: drop the soonest one.
		if up := o.sched.Upcoming(1); len(up) > 0 {
			r, ok = up[0], true
		}
	}
	if !ok {
		return "I couldn't find a reminder like that."
	}

	if err := o.sched.Cancel(r.ID); err != nil {
		if errors.Is(err, reminder.ErrNotFound) {
			return "That reminder is already gone."
		}
		o.warnStorage(err)
	}
	return fmt.Sprintf("Cancelled the reminder to %s.", r.Message)
}

func (o *Orchestrator) handleSetPreference(it intent.Intent) string {
	key, value := it.Param(intent.ParamKey), it.Param(intent.ParamValue)
	if key == "" || value == "" {
		return clarification
	}
	if err := o.st.SetPreference(key, value); err != nil {
		o.warnStorage(err)
	}
	return fmt.Sprintf("Got it, I'll remember that %s is %s.", key, value)
}

func (o *Orchestrator) handleOpenApp(ctx context.Context, it intent.Intent) string {
	app := it.Param(intent.ParamApp)
	if app == "" {
		return clarification
	}
	if o.launch == nil {
		return "I can't launch applications on this machine."
	}

	// "remember that browser is firefox" makes "open browser" work.
	command := app
	if alias, ok := o.st.GetPreference(app); ok {
		command = alias
	}

	if err := o.launch(ctx, command); err != nil {
		log.Error("app launch failed", "app", app, "err", err)
		return fmt.Sprintf("I couldn't find an application called %s.", app)
	}
	return "Opening " + app + "."
}

func (o *Orchestrator) handleWebSearch(ctx context.Context, it intent.Intent) string {
	query := it.Param(intent.ParamQuery)
	if query == "" {
		return clarification
	}
	if o.search == nil {
		return "Web search isn't available right now."
	}
	if err := o.search(ctx, query); err != nil {
		log.Error("web search failed", "query", query, "err", err)
		return apology
	}
	return fmt.Sprintf("Searching the web for %s.", query)
}

// handleMood and handleActivity answer from today's monitor data. The
// scheduler is left out of the digest; upcoming reminders have their own
// intent.
func (o *Orchestrator) handleMood(now time.Time) string {
	s, err := summary.Generate(o.st, nil, now)
	if err != nil {
		o.warnStorage(err)
	}
	if s.DominantEmotion == "" {
		return "I haven't picked up on your mood yet today."
	}
	return fmt.Sprintf("You've mostly seemed %s today.", s.DominantEmotion)
}

func (o *Orchestrator) handleActivity(now time.Time) string {
	s, err := summary.Generate(o.st, nil, now)
	if err != nil {
		o.warnStorage(err)
	}
	if len(s.TopApps) == 0 {
		return "I haven't seen you do anything on this machine today."
	}

	var b strings.Builder
	b.WriteString("Today you've spent the most time in ")
	for i, u := range s.TopApps {
		if i > 0 {
			b.WriteString(", then ")
		}
		fmt.Fprintf(&b, "%s (%s)", u.App, u.Duration.Round(time.Minute))
	}
	return b.String() + "."
}

var jokes = []string{
	"I would tell you a UDP joke, but you might not get it.",
	"There are only two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"A SQL query walks into a bar, goes up to two tables and asks: may I join you?",
}

func (o *Orchestrator) nextJoke() string {
	n := o.jokeN.Add(1) - 1
	return jokes[int(n)%len(jokes)]
}

func (o *Orchestrator) handleVolume(ctx context.Context, it intent.Intent) string {
	if o.desktop == nil {
		return "I can't control the volume on this machine."
	}
	direction := it.Param(intent.ParamDirection)
	level, _ := strconv.Atoi(it.Param(intent.ParamLevel))
	if err := o.desktop.Volume(ctx, direction, level); err != nil {
		log.Error("volume control failed", "direction", direction, "err", err)
		return apology
	}
	switch direction {
	case "mute":
		return "Muted."
	case "unmute":
		return "Unmuted."
	case "set":
		return fmt.Sprintf("Volume set to %d percent.", level)
	default:
		return "Volume " + direction + "."
	}
}

func (o *Orchestrator) handleBrightness(ctx context.Context, it intent.Intent) string {
	if o.desktop == nil {
		return "I can't control the screen brightness on this machine."
	}
	direction := it.Param(intent.ParamDirection)
	level, _ := strconv.Atoi(it.Param(intent.ParamLevel))
	if err := o.desktop.Brightness(ctx, direction, level); err != nil {
		log.Error("brightness control failed", "direction", direction, "err", err)
		return apology
	}
	if direction == "set" {
		return fmt.Sprintf("Brightness set to %d percent.", level)
	}
	return "Brightness " + direction + "."
}

func (o *Orchestrator) handleScreenshot(ctx context.Context) string {
	if o.desktop == nil {
		return "I can't take screenshots on this machine."
	}
	path, err := o.desktop.Screenshot(ctx)
	if err != nil {
		log.Error("screenshot failed", "err", err)
		return apology
	}
	return "Screenshot saved to " + path + "."
}

func recurrenceKind(s string) string {
	switch s {
	case intent.RecurDaily:
		return reminder.Daily
	case intent.RecurWeekly:
		return reminder.Weekly
	case intent.RecurInterval:
		return reminder.Interval
	default:
		return reminder.None
	}
}

func describeRecurrence(r reminder.Recurrence) string {
	switch r.Kind {
	case reminder.Daily:
		return "every day"
	case reminder.Weekly:
		return "every week"
	case reminder.Interval:
		return "every " + r.Every
	default:
		return ""
	}
}

func describeTime(t, now time.Time) string {
	if t.Sub(now) < 24*time.Hour && t.Day() == now.Day() {
		return t.Format("3:04 PM")
	}
	return t.Format("3:04 PM on Monday, January 2")
}
