package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	everyIntervalRe = regexp.MustCompile(`\bevery (\d+) (second|minute|hour)s?\b`)
	everyDailyRe    = regexp.MustCompile(`\b(?:every day|daily)\b`)
	everyWeeklyRe   = regexp.MustCompile(`\b(?:every week|weekly)\b`)

	relativeRe = regexp.MustCompile(`\bin (\d+) (second|minute|hour|day|week)s?\b`)
	clockRe    = regexp.MustCompile(`\b(?:at|by) (\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	tomorrowRe = regexp.MustCompile(`\btomorrow\b`)
)

var unitDurations = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// parseRecurrence pulls a recurrence phrase out of the utterance and
// returns what is left of it.
func parseRecurrence(text string) (recurrence string, every time.Duration, rest string) {
	if m := everyIntervalRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			return RecurInterval, time.Duration(n) * unitDurations[m[2]],
				strings.TrimSpace(everyIntervalRe.ReplaceAllString(text, " "))
		}
	}
	if everyDailyRe.MatchString(text) {
		return RecurDaily, 0, strings.TrimSpace(everyDailyRe.ReplaceAllString(text, " "))
	}
	if everyWeeklyRe.MatchString(text) {
		return RecurWeekly, 0, strings.TrimSpace(everyWeeklyRe.ReplaceAllString(text, " "))
	}
	return RecurNone, 0, text
}

// parseWhen resolves a time phrase against now. timed is false when the
// utterance carried no usable time phrase at all.
func parseWhen(text string, now time.Time) (fireAt time.Time, rest string, timed bool) {
	rest = text

	tomorrow := tomorrowRe.MatchString(rest)
	if tomorrow {
		rest = strings.TrimSpace(tomorrowRe.ReplaceAllString(rest, " "))
	}

	if m := relativeRe.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.Atoi(m[1])
		rest = strings.TrimSpace(relativeRe.ReplaceAllString(rest, " "))
		return now.Add(time.Duration(n) * unitDurations[m[2]]), rest, true
	}

	if m := clockRe.FindStringSubmatch(rest); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		switch m[3] {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			return now, text, false
		}

		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if tomorrow {
			at = at.Add(24 * time.Hour)
		} else if !at.After(now) {
			// A clock time already past today means tomorrow.
			at = at.Add(24 * time.Hour)
		}
		rest = strings.TrimSpace(clockRe.ReplaceAllString(rest, " "))
		return at, rest, true
	}

	if tomorrow {
		return now.Add(24 * time.Hour), rest, true
	}
	return now, text, false
}
