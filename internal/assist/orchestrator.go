// Package assist is the assistant's decision loop. One goroutine
// multiplexes utterances, reminder ticks and monitor ticks; slow handler
// work (chat completions) runs on workers so a long API call never delays
// a reminder. All durable state flows through the store.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aide/internal/chat"
	"aide/internal/intent"
	"aide/internal/monitor"
	"aide/internal/reminder"
	"aide/internal/store"
)

// Speaker voices a response. speech.Chain satisfies this.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Notifier pushes events to companion clients. bus.Server satisfies this.
type Notifier interface {
	Publish(kind, content string)
}

// Classifier turns an utterance into an intent.
type Classifier interface {
	Classify(ctx context.Context, utterance string, now time.Time) intent.Intent
}

// Launcher and Searcher are the app-control collaborators.
type (
	Launcher func(ctx context.Context, command string) error
	Searcher func(ctx context.Context, query string) error
)

// Desktop controls the local session: audio level, screen brightness and
// screenshots. system.Desktop satisfies this.
type Desktop interface {
	Volume(ctx context.Context, direction string, level int) error
	Brightness(ctx context.Context, direction string, level int) error
	Screenshot(ctx context.Context) (string, error)
}

// Config is the orchestrator's tunable surface.
type Config struct {
	MaxHistory       int           // conversation turns retained
	ReminderInterval time.Duration // reminder tick cadence
	MonitorInterval  time.Duration // monitor tick cadence, 0 disables
}

// DefaultConfig mirrors the assistant's long-standing cadences.
func DefaultConfig() Config {
	return Config{
		MaxHistory:       10,
		ReminderInterval: 10 * time.Second,
		MonitorInterval:  5 * time.Second,
	}
}

type utteranceEvent struct {
	text string
	at   time.Time
}

type exchangeResult struct {
	response string
	at       time.Time
}

// Orchestrator owns the store, scheduler and classifier and runs the
// event loop.
type Orchestrator struct {
	st      *store.Store
	sched   *reminder.Scheduler
	cls     Classifier
	backend chat.Backend
	mon     *monitor.Monitor
	speaker Speaker
	notify  Notifier
	launch  Launcher
	search  Searcher
	desktop Desktop
	cfg     Config
	now     func() time.Time

	utterances chan utteranceEvent
	results    chan exchangeResult

	jokeN       atomic.Uint32
	paused      atomic.Bool
	monitorBusy atomic.Bool
	storageWarn sync.Once
	speakMu     sync.Mutex
}

// New wires an orchestrator. backend, mon, speaker, notify, launch and
// search may each be nil; the matching features degrade gracefully.
func New(st *store.Store, sched *reminder.Scheduler, cls Classifier, backend chat.Backend, cfg Config) *Orchestrator {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = DefaultConfig().ReminderInterval
	}

	o := &Orchestrator{
		st:         st,
		sched:      sched,
		cls:        cls,
		backend:    backend,
		cfg:        cfg,
		now:        time.Now,
		utterances: make(chan utteranceEvent, 8),
		results:    make(chan exchangeResult, 8),
	}
	st.SetLimit(store.Conversation, cfg.MaxHistory)
	return o
}

// SetMonitor attaches the background monitor.
func (o *Orchestrator) SetMonitor(m *monitor.Monitor) { o.mon = m }

// SetOutputs attaches voice and bus outputs.
func (o *Orchestrator) SetOutputs(s Speaker, n Notifier) { o.speaker, o.notify = s, n }

// SetSystem attaches the app-launch and web-search collaborators.
func (o *Orchestrator) SetSystem(l Launcher, s Searcher) { o.launch, o.search = l, s }

// SetDesktop attaches the local session controller.
func (o *Orchestrator) SetDesktop(d Desktop) { o.desktop = d }

// SetClock overrides the time source; tests use this.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Submit queues an utterance for the loop. Empty input is dropped; a full
// queue drops the utterance rather than block the caller.
func (o *Orchestrator) Submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	ev := utteranceEvent{text: text, at: o.now()}
	select {
	case o.utterances <- ev:
	default:
		log.Warn("utterance queue full, dropping", "text", text)
	}
}

// Pause suppresses command handling until Resume.
func (o *Orchestrator) Pause()  { o.paused.Store(true) }
func (o *Orchestrator) Resume() { o.paused.Store(false) }

// Paused reports whether command handling is suppressed.
func (o *Orchestrator) Paused() bool { return o.paused.Load() }

// Run drives the loop until the context is cancelled. Handler failures
// never stop it.
func (o *Orchestrator) Run(ctx context.Context) error {
	remTicker := time.NewTicker(o.cfg.ReminderInterval)
	defer remTicker.Stop()

	var monC <-chan time.Time
	if o.mon != nil && o.cfg.MonitorInterval > 0 {
		monTicker := time.NewTicker(o.cfg.MonitorInterval)
		defer monTicker.Stop()
		monC = monTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-o.utterances:
			o.handleUtterance(ctx, ev)
		case res := <-o.results:
			o.finishExchange(ctx, res)
		case <-remTicker.C:
			o.ReminderTick(ctx, o.now())
		case <-monC:
			o.monitorTick(ctx, o.now())
		}
	}
}

// HandleOnce classifies and dispatches a single utterance synchronously
// and returns the response. Chat goes through the backend inline. Used by
// the IPC "say" path and tests; the voice path goes through Submit.
func (o *Orchestrator) HandleOnce(ctx context.Context, text string) string {
	ev := utteranceEvent{text: text, at: o.now()}

	it := o.cls.Classify(ctx, ev.text, ev.at)
	if resp, done := o.gatePaused(it); done {
		return resp
	}

	// Snapshot the history before recording the new turn; the backend
	// appends the prompt itself, so it must not already be in there.
	history := o.recentHistory()
	o.appendTurn(chat.RoleUser, ev.text, ev.at)
	resp := o.safeDispatch(ctx, it, ev, history)
	if resp != "" {
		o.appendTurn(chat.RoleAssistant, resp, o.now())
	}
	return resp
}

func (o *Orchestrator) handleUtterance(ctx context.Context, ev utteranceEvent) {
	it := o.cls.Classify(ctx, ev.text, ev.at)

	if resp, done := o.gatePaused(it); done {
		if resp != "" {
			o.emit(ctx, resp)
		}
		return
	}

	// Snapshot the history before recording the new turn; the backend
	// appends the prompt itself, so it must not already be in there.
	history := o.recentHistory()
	o.appendTurn(chat.RoleUser, ev.text, ev.at)

	if it.Kind == intent.Chat && o.backend != nil {
		// Slow path: completion runs off-loop so ticks keep firing.
		prompt := ev.text
		go func() {
			resp := o.completeChat(ctx, history, prompt)
			select {
			case o.results <- exchangeResult{response: resp, at: o.now()}:
			case <-ctx.Done():
			}
		}()
		return
	}

	resp := o.safeDispatch(ctx, it, ev, history)
	o.finishExchange(ctx, exchangeResult{response: resp, at: o.now()})
}

func (o *Orchestrator) finishExchange(ctx context.Context, res exchangeResult) {
	if res.response == "" {
		return
	}
	o.appendTurn(chat.RoleAssistant, res.response, res.at)
	o.emit(ctx, res.response)
}

// gatePaused implements the pause gate: while paused only Resume gets
// through; Pause itself always works.
func (o *Orchestrator) gatePaused(it intent.Intent) (string, bool) {
	switch it.Kind {
	case intent.Pause:
		o.Pause()
		return "I'll pause for now. Say resume when you need me.", true
	case intent.Resume:
		if o.Paused() {
			o.Resume()
			return "I'm back. How can I help?", true
		}
		return "", false
	default:
		if o.Paused() {
			return "", true
		}
		return "", false
	}
}

// ReminderTick fires due reminders and notifies each exactly once.
func (o *Orchestrator) ReminderTick(ctx context.Context, now time.Time) {
	fired, err := o.sched.Tick(now)
	if err != nil {
		o.warnStorage(err)
	}
	for _, r := range fired {
		text := "Reminder: " + r.Message
		log.Info("reminder due", "id", r.ID, "message", r.Message)
		if o.notify != nil {
			o.notify.Publish("notification", text)
		}
		// Off-loop like emit: a slow TTS call must not stall the ticks.
		go o.speak(ctx, text)
	}
}

func (o *Orchestrator) monitorTick(ctx context.Context, now time.Time) {
	// Skip the tick when the previous one is still sampling.
	if !o.monitorBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer o.monitorBusy.Store(false)
		o.mon.Tick(ctx, now)
	}()
}

func (o *Orchestrator) emit(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if o.notify != nil {
		o.notify.Publish("response", text)
	}
	go o.speak(ctx, text)
}

func (o *Orchestrator) speak(ctx context.Context, text string) {
	if o.speaker == nil {
		return
	}
	o.speakMu.Lock()
	defer o.speakMu.Unlock()
	if err := o.speaker.Speak(ctx, text); err != nil {
		log.Error("voice output failed", "err", err)
	}
}

func (o *Orchestrator) appendTurn(role, text string, at time.Time) {
	_, err := o.st.Append(store.Conversation, chat.Turn{Role: role, Text: text, Timestamp: at})
	if err != nil {
		o.warnStorage(err)
	}
}

func (o *Orchestrator) recentHistory() []chat.Turn {
	recs, err := o.st.ReadAll(store.Conversation)
	if err != nil {
		return nil
	}

	turns := make([]chat.Turn, 0, len(recs))
	for _, rec := range recs {
		var t chat.Turn
		if json.Unmarshal(rec.Data, &t) == nil {
			turns = append(turns, t)
		}
	}
	if len(turns) > o.cfg.MaxHistory {
		turns = turns[len(turns)-o.cfg.MaxHistory:]
	}
	return turns
}

func (o *Orchestrator) warnStorage(err error) {
	if errors.Is(err, store.ErrUnavailable) {
		o.storageWarn.Do(func() {
			log.Warn("storage unavailable, running from memory only")
			if o.notify != nil {
				o.notify.Publish("notification", "Heads up: I can't reach my storage, nothing will survive a restart.")
			}
		})
		return
	}
	if err != nil {
		log.Error("store operation failed", "err", err)
	}
}
