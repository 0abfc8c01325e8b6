// Package summary aggregates one day of stored activity, emotion and
// conversation data into a short report.
package summary

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"aide/internal/chat"
	"aide/internal/monitor"
	"aide/internal/reminder"
	"aide/internal/store"
)

// AppUsage is total foreground time attributed to one application.
type AppUsage struct {
	App      string
	Duration time.Duration
}

// Summary is one day's digest.
type Summary struct {
	Date            time.Time
	TopApps         []AppUsage
	EmotionCounts   map[string]int
	DominantEmotion string
	Exchanges       int
	Upcoming        []reminder.Reminder
}

// Generate builds the digest for the calendar day containing day.
func Generate(st *store.Store, sched *reminder.Scheduler, day time.Time) (Summary, error) {
	s := Summary{Date: day, EmotionCounts: make(map[string]int)}

	if err := s.collectActivity(st, day); err != nil {
		return s, err
	}
	if err := s.collectEmotions(st, day); err != nil {
		return s, err
	}
	if err := s.collectConversation(st, day); err != nil {
		return s, err
	}
	if sched != nil {
		s.Upcoming = sched.Upcoming(5)
	}
	return s, nil
}

func (s *Summary) collectActivity(st *store.Store, day time.Time) error {
	recs, err := st.ReadAll(store.Activity)
	if err != nil {
		return err
	}

	// Records carry a running duration for the window in front, so only
	// the last sample of each contiguous run counts toward the total.
	usage := make(map[string]time.Duration)
	var prev *monitor.ActivityRecord
	flush := func() {
		if prev != nil && sameDay(prev.Timestamp, day) {
			usage[prev.AppName] += prev.Duration
		}
	}

	for _, rec := range recs {
		var a monitor.ActivityRecord
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			continue
		}
		if prev != nil && (a.AppName != prev.AppName || a.WindowTitle != prev.WindowTitle) {
			flush()
		}
		cur := a
		prev = &cur
	}
	flush()

	for app, d := range usage {
		if app == "" {
			continue
		}
		s.TopApps = append(s.TopApps, AppUsage{App: app, Duration: d})
	}
	sort.Slice(s.TopApps, func(i, j int) bool { return s.TopApps[i].Duration > s.TopApps[j].Duration })
	if len(s.TopApps) > 5 {
		s.TopApps = s.TopApps[:5]
	}
	return nil
}

func (s *Summary) collectEmotions(st *store.Store, day time.Time) error {
	recs, err := st.ReadAll(store.Emotions)
	if err != nil {
		return err
	}

	best, bestCount := "", 0
	for _, rec := range recs {
		var e monitor.EmotionSample
		if err := json.Unmarshal(rec.Data, &e); err != nil || !sameDay(e.Timestamp, day) {
			continue
		}
		s.EmotionCounts[e.Label]++
		if s.EmotionCounts[e.Label] > bestCount {
			best, bestCount = e.Label, s.EmotionCounts[e.Label]
		}
	}
	s.DominantEmotion = best
	return nil
}

func (s *Summary) collectConversation(st *store.Store, day time.Time) error {
	recs, err := st.ReadAll(store.Conversation)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		var t chat.Turn
		if err := json.Unmarshal(rec.Data, &t); err != nil {
			continue
		}
		if t.Role == chat.RoleUser && sameDay(t.Timestamp, day) {
			s.Exchanges++
		}
	}
	return nil
}

// Render formats the digest for display or speech.
func (s Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary for %s.\n", s.Date.Format("Monday, January 2"))

	if len(s.TopApps) == 0 {
		b.WriteString("No activity recorded.\n")
	} else {
		b.WriteString("Most used apps:\n")
		for _, u := range s.TopApps {
			fmt.Fprintf(&b, "  %s: %s\n", u.App, u.Duration.Round(time.Minute))
		}
	}

	if s.DominantEmotion != "" {
		fmt.Fprintf(&b, "You mostly seemed %s today.\n", s.DominantEmotion)
	}
	fmt.Fprintf(&b, "We talked %d times.\n", s.Exchanges)

	if len(s.Upcoming) > 0 {
		b.WriteString("Coming up:\n")
		for _, r := range s.Upcoming {
			fmt.Fprintf(&b, "  %s at %s\n", r.Message, r.FireAt.Format("3:04 PM on Monday"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
