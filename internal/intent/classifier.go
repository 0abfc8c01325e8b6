package intent

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Fallback lets an external model classify utterances no rule matched.
// It reports ok=false when the model had no confident answer.
type Fallback func(ctx context.Context, utterance string) (Intent, bool)

// Classifier maps utterances to intents against a supplied reference time.
type Classifier struct {
	fallback Fallback
}

// NewClassifier builds a rule-first classifier. fallback may be nil.
func NewClassifier(fallback Fallback) *Classifier {
	return &Classifier{fallback: fallback}
}

var (
	pausePhrases  = []string{"pause", "stop listening", "go quiet", "be quiet"}
	resumePhrases = []string{"resume", "continue", "unpause", "wake up"}

	openRe     = regexp.MustCompile(`^(?:open|launch|start)\s+(.+)$`)
	searchRe   = regexp.MustCompile(`^(?:search(?: the web)? for|look up|google)\s+(.+)$`)
	rememberRe = regexp.MustCompile(`^remember that\s+(.+?)\s+is\s+(.+)$`)
	preferRe   = regexp.MustCompile(`^i prefer\s+(.+)$`)
	cancelRe   = regexp.MustCompile(`^(?:cancel|delete|remove)(?: the| my)?\s+reminder(?:\s+(?:to|for|about)?\s*(.+))?$`)
	listRe     = regexp.MustCompile(`\b(?:what are my reminders|list my reminders|show my reminders|my reminders)\b`)
	remindRe   = regexp.MustCompile(`\b(?:remind me|set a reminder)\b`)

	moodRe       = regexp.MustCompile(`\b(?:how am i feeling|how do i feel|what(?:'s| is) my mood)\b`)
	activityRe   = regexp.MustCompile(`\b(?:what have i been doing|what was i doing|what did i do today)\b`)
	timeRe       = regexp.MustCompile(`\b(?:what time is it|what(?:'s| is) the time)\b`)
	dateRe       = regexp.MustCompile(`\b(?:what day is it|what(?:'s| is) (?:the date|today'?s date))\b`)
	jokeRe       = regexp.MustCompile(`\b(?:tell me a joke|make me laugh|another joke)\b`)
	screenshotRe = regexp.MustCompile(`\btake a screenshot\b|^screenshot$`)

	volumeSetRe     = regexp.MustCompile(`\bset (?:the )?volume to (\d{1,3})\b`)
	volumeRe        = regexp.MustCompile(`\b(?:turn (?:the )?volume (up|down)|volume (up|down)|(mute|unmute))\b`)
	brightnessSetRe = regexp.MustCompile(`\bset (?:the )?brightness to (\d{1,3})\b`)
	brightnessRe    = regexp.MustCompile(`\b(?:turn (?:the )?brightness (up|down)|brightness (up|down))\b`)
)

// Classify is a pure function of the utterance, the rule tables and now.
// Empty or unintelligible input yields Unrecognized; anything non-empty
// that matches no rule defaults to Chat.
func (c *Classifier) Classify(ctx context.Context, utterance string, now time.Time) Intent {
	text := normalize(utterance)
	if text == "" {
		return Intent{Kind: Unrecognized}
	}

	for _, p := range pausePhrases {
		if text == p {
			return Intent{Kind: Pause}
		}
	}
	for _, p := range resumePhrases {
		if text == p {
			return Intent{Kind: Resume}
		}
	}

	if listRe.MatchString(text) {
		return Intent{Kind: ListReminders}
	}
	if m := cancelRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: CancelReminder, Params: map[string]string{
			ParamTarget: strings.TrimSpace(m[1]),
		}}
	}
	if remindRe.MatchString(text) {
		return classifyReminder(text, now)
	}
	if m := openRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: OpenApp, Params: map[string]string{
			ParamApp: strings.TrimSpace(m[1]),
		}}
	}
	if m := searchRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: WebSearch, Params: map[string]string{
			ParamQuery: strings.TrimSpace(m[1]),
		}}
	}
	if m := rememberRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: SetPreference, Params: map[string]string{
			ParamKey:   strings.TrimSpace(m[1]),
			ParamValue: strings.TrimSpace(m[2]),
		}}
	}
	if m := preferRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: SetPreference, Params: map[string]string{
			ParamKey:   "preference",
			ParamValue: strings.TrimSpace(m[1]),
		}}
	}

	if moodRe.MatchString(text) {
		return Intent{Kind: Mood}
	}
	if activityRe.MatchString(text) {
		return Intent{Kind: Activity}
	}
	if timeRe.MatchString(text) {
		return Intent{Kind: TimeQuery}
	}
	if dateRe.MatchString(text) {
		return Intent{Kind: DateQuery}
	}
	if jokeRe.MatchString(text) {
		return Intent{Kind: Joke}
	}
	if m := volumeSetRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: Volume, Params: map[string]string{
			ParamDirection: "set",
			ParamLevel:     m[1],
		}}
	}
	if m := volumeRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: Volume, Params: map[string]string{
			ParamDirection: firstGroup(m),
		}}
	}
	if m := brightnessSetRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: Brightness, Params: map[string]string{
			ParamDirection: "set",
			ParamLevel:     m[1],
		}}
	}
	if m := brightnessRe.FindStringSubmatch(text); m != nil {
		return Intent{Kind: Brightness, Params: map[string]string{
			ParamDirection: firstGroup(m),
		}}
	}
	if screenshotRe.MatchString(text) {
		return Intent{Kind: Screenshot}
	}

	if c.fallback != nil {
		if out, ok := c.fallback(ctx, utterance); ok {
			return out
		}
	}

	return Intent{Kind: Chat, Params: map[string]string{ParamMessage: text}}
}

func classifyReminder(text string, now time.Time) Intent {
	recurrence, every, rest := parseRecurrence(text)
	fireAt, rest, timed := parseWhen(rest, now)

	if !timed {
		switch recurrence {
		case RecurInterval:
			// Interval templates without an anchor start one period out.
			fireAt = now.Add(every)
		case RecurNone:
			// No time phrase at all: same default the assistant always had.
			fireAt = now.Add(time.Hour)
		default:
			fireAt = now.Add(24 * time.Hour)
		}
	}

	message := cleanReminderText(rest)
	if message == "" {
		return Intent{Kind: Unrecognized}
	}

	params := map[string]string{
		ParamMessage:    message,
		ParamFireAt:     fireAt.Format(time.RFC3339),
		ParamRecurrence: recurrence,
	}
	if recurrence == RecurInterval {
		params[ParamEvery] = every.String()
	}
	return Intent{Kind: SetReminder, Params: params}
}

var (
	// Everything up to and including the trigger phrase, so "could you
	// remind me to call mom" keeps only the message. Connectives after
	// the trigger are part of the lead, not the message.
	reminderLead   = regexp.MustCompile(`^.*?\b(?:remind me|set a reminder)\b(?:\s+(?:to|for|about|that))?\s*`)
	trailingPlease = regexp.MustCompile(`[\s,]*\bplease\b[\s.,!?]*$`)
)

func cleanReminderText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = reminderLead.ReplaceAllString(text, "")
	text = trailingPlease.ReplaceAllString(text, "")
	return strings.Trim(text, " .,!?")
}

// firstGroup returns the first non-empty capture of a submatch.
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// normalize lowercases and strips anything that is not worth classifying.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}
