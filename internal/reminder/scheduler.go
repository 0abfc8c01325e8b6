package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"aide/internal/store"
)

type entry struct {
	r   Reminder
	seq int // insertion order, tie-break for equal fire times
}

// Scheduler keeps all pending reminders and hands out the due ones.
// Tick never returns the same scheduled instant twice: non-recurring
// reminders are committed and removed, recurring ones are advanced past
// now before Tick returns.
type Scheduler struct {
	mu    sync.Mutex
	st    *store.Store
	items map[string]*entry
	seq   int
}

// NewScheduler reloads pending reminders from the store. Recurring
// reminders whose fire time fell while the process was down are advanced
// to the next future occurrence; missed occurrences are skipped, not
// replayed.
func NewScheduler(st *store.Store, now time.Time) (*Scheduler, error) {
	s := &Scheduler{st: st, items: make(map[string]*entry)}

	recs, err := st.ReadAll(store.Reminders)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		var r Reminder
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return nil, fmt.Errorf("%w: reminder %s: %v", store.ErrCorrupt, rec.ID, err)
		}
		r.ID = rec.ID

		if r.Fired && !r.Recurrence.Recurring() {
			continue
		}
		if r.Recurrence.Recurring() && !r.FireAt.After(now) {
			period, err := r.Recurrence.Period()
			if err != nil {
				log.Warn("dropping reminder with bad recurrence", "id", r.ID, "err", err)
				continue
			}
			r.FireAt = nextOccurrence(r.FireAt, period, now)
			if err := s.persist(r); err != nil && !errors.Is(err, store.ErrUnavailable) {
				return nil, err
			}
		}

		s.seq++
		s.items[r.ID] = &entry{r: r, seq: s.seq}
	}
	return s, nil
}

// Add validates and stores a reminder, returning its id. A fire time in
// the past is rejected, except for interval recurrences given without an
// anchor, which start one period from now. An ErrUnavailable from the
// store is reported but the reminder is still scheduled in memory.
func (s *Scheduler) Add(r Reminder, now time.Time) (string, error) {
	if strings.TrimSpace(r.Message) == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidSchedule)
	}
	period, err := r.Recurrence.Period()
	if err != nil {
		return "", err
	}

	if r.FireAt.IsZero() {
		if r.Recurrence.Kind != Interval {
			return "", fmt.Errorf("%w: no fire time", ErrInvalidSchedule)
		}
		r.FireAt = now.Add(period)
	}
	if r.FireAt.Before(now) {
		if r.Recurrence.Kind != Interval {
			return "", fmt.Errorf("%w: fire time %s is in the past", ErrInvalidSchedule, r.FireAt.Format(time.RFC3339))
		}
		r.FireAt = nextOccurrence(r.FireAt, period, now)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.Fired = false

	id, storeErr := s.st.Append(store.Reminders, r)
	if storeErr != nil && !errors.Is(storeErr, store.ErrUnavailable) {
		return "", storeErr
	}
	r.ID = id

	s.mu.Lock()
	s.seq++
	s.items[id] = &entry{r: r, seq: s.seq}
	s.mu.Unlock()

	return id, storeErr
}

// Cancel withdraws a pending reminder. Once a reminder has been returned
// by Tick it is committed and Cancel reports ErrNotFound.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if err := s.st.Delete(store.Reminders, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// Tick returns every reminder due at now, each exactly once across the
// scheduler's lifetime, in ascending fire-time order with insertion order
// breaking ties. Recurring reminders are re-armed strictly past now.
func (s *Scheduler) Tick(now time.Time) ([]Reminder, error) {
	s.mu.Lock()

	var due []*entry
	for _, e := range s.items {
		if !e.r.FireAt.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].r.FireAt.Equal(due[j].r.FireAt) {
			return due[i].r.FireAt.Before(due[j].r.FireAt)
		}
		return due[i].seq < due[j].seq
	})

	fired := make([]Reminder, 0, len(due))
	var errs []error
	for _, e := range due {
		fired = append(fired, e.r)

		if e.r.Recurrence.Recurring() {
			period, err := e.r.Recurrence.Period()
			if err != nil {
				// Cannot re-arm; retire instead of firing forever.
				delete(s.items, e.r.ID)
				errs = append(errs, err)
				continue
			}
			e.r.FireAt = nextOccurrence(e.r.FireAt, period, now)
			if err := s.persist(e.r); err != nil {
				errs = append(errs, err)
			}
		} else {
			delete(s.items, e.r.ID)
			if err := s.st.Delete(store.Reminders, e.r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				errs = append(errs, err)
			}
		}
	}
	s.mu.Unlock()

	return fired, errors.Join(errs...)
}

// Upcoming lists pending reminders sorted by fire time, at most limit.
func (s *Scheduler) Upcoming(limit int) []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e.r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Find returns the first pending reminder whose message contains frag.
func (s *Scheduler) Find(frag string) (Reminder, bool) {
	frag = strings.ToLower(strings.TrimSpace(frag))
	if frag == "" {
		return Reminder{}, false
	}
	for _, r := range s.Upcoming(0) {
		if strings.Contains(strings.ToLower(r.Message), frag) {
			return r, true
		}
	}
	return Reminder{}, false
}

func (s *Scheduler) persist(r Reminder) error {
	return s.st.Update(store.Reminders, r.ID, func(json.RawMessage) (any, error) {
		return r, nil
	})
}

// nextOccurrence advances fireAt by whole periods until it is strictly in
// the future. fireAt never moves backwards.
func nextOccurrence(fireAt time.Time, period time.Duration, now time.Time) time.Time {
	if period <= 0 {
		return fireAt
	}
	for !fireAt.After(now) {
		fireAt = fireAt.Add(period)
	}
	return fireAt
}
