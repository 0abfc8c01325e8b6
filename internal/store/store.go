// Package store is the durable state layer of the assistant. Every
// collection lives in its own JSON file under the data directory so the
// state stays inspectable with a text editor. Writes go through an atomic
// temp-file rename and are flushed before the call returns.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Collection names used across the daemon.
const (
	Conversation = "conversation"
	Reminders    = "reminders"
	Activity     = "activity"
	Emotions     = "emotions"
	Preferences  = "preferences"
)

var (
	// ErrNotFound is returned by Update and Delete for unknown record ids.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned once when the backing medium stops
	// accepting writes. The in-memory state is still updated; the store
	// keeps working without persistence from then on.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrCorrupt means a collection file exists but cannot be parsed.
	// Loading must not proceed past this.
	ErrCorrupt = errors.New("storage corrupt")
)

// Record is one stored entry. Data holds the caller's JSON document.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type collection struct {
	mu      sync.Mutex
	name    string
	records []Record
	limit   int // 0 = unbounded, otherwise FIFO eviction
}

// Store owns a set of named collections. A single writer mutates a
// collection at a time; readers get a snapshot copy.
type Store struct {
	mu         sync.Mutex
	dir        string
	persistent bool
	cols       map[string]*collection

	idMu    sync.Mutex
	entropy *rand.Rand
}

// Open loads every collection file found under dir. A missing or empty
// directory is fine; an unreadable one degrades the store to memory-only
// and reports ErrUnavailable alongside a usable store. A file that exists
// but does not parse is fatal (ErrCorrupt).
func Open(dir string) (*Store, error) {
	s := newStore(dir, true)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.persistent = false
		return s, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.persistent = false
		return s, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		recs, err := loadCollection(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		s.cols[name] = &collection{name: name, records: recs}
	}

	return s, nil
}

// OpenMemory returns a store that never touches disk.
func OpenMemory() *Store {
	return newStore("", false)
}

func newStore(dir string, persistent bool) *Store {
	return &Store{
		dir:        dir,
		persistent: persistent,
		cols:       make(map[string]*collection),
		entropy:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Persistent reports whether writes still reach disk.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistent
}

// SetLimit caps a collection at n records with FIFO eviction on append.
func (s *Store) SetLimit(name string, n int) {
	c := s.col(name)
	c.mu.Lock()
	c.limit = n
	if n > 0 && len(c.records) > n {
		c.records = append([]Record(nil), c.records[len(c.records)-n:]...)
	}
	c.mu.Unlock()
}

// NewID returns a fresh ULID string.
func (s *Store) NewID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Append stores v as a new record and returns its id. The record is
// durable when Append returns, unless persistence has been lost, in which
// case the record is kept in memory and ErrUnavailable is reported.
func (s *Store) Append(name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	id := s.NewID()
	c := s.col(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, Record{ID: id, Data: data})
	if c.limit > 0 && len(c.records) > c.limit {
		c.records = append([]Record(nil), c.records[len(c.records)-c.limit:]...)
	}

	return id, s.flush(c)
}

// ReadAll returns a snapshot of the collection in insertion order.
func (s *Store) ReadAll(name string) ([]Record, error) {
	c := s.col(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out, nil
}

// Update replaces the record's document with whatever mutate returns.
func (s *Store) Update(name, id string, mutate func(json.RawMessage) (any, error)) error {
	c := s.col(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		if c.records[i].ID != id {
			continue
		}
		v, err := mutate(c.records[i].Data)
		if err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		c.records[i].Data = data
		return s.flush(c)
	}
	return ErrNotFound
}

// Delete removes the record with the given id.
func (s *Store) Delete(name, id string) error {
	c := s.col(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		if c.records[i].ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return s.flush(c)
		}
	}
	return ErrNotFound
}

// Names lists the known collections, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cols))
	for n := range s.cols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Store) col(name string) *collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		c = &collection{name: name}
		s.cols[name] = c
	}
	return c
}

// flush writes the collection file. Caller holds c.mu. A failed write
// flips the store to memory-only so the daemon can keep running.
func (s *Store) flush(c *collection) error {
	s.mu.Lock()
	persistent, dir := s.persistent, s.dir
	s.mu.Unlock()

	if !persistent {
		return nil
	}

	if err := writeFileAtomic(filepath.Join(dir, c.name+".json"), c.records); err != nil {
		s.mu.Lock()
		s.persistent = false
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
