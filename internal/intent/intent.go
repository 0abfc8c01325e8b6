// Package intent turns a raw utterance into a typed intent. Deterministic
// keyword and pattern rules run first; a model-backed fallback may refine
// anything the rules leave as plain chat.
package intent

// Kind is the closed set of things the assistant knows how to do.
type Kind string

const (
	Chat           Kind = "chat"
	OpenApp        Kind = "open_app"
	WebSearch      Kind = "web_search"
	SetReminder    Kind = "set_reminder"
	ListReminders  Kind = "list_reminders"
	CancelReminder Kind = "cancel_reminder"
	SetPreference  Kind = "set_preference"
	Mood           Kind = "mood"
	Activity       Kind = "activity"
	TimeQuery      Kind = "time"
	DateQuery      Kind = "date"
	Joke           Kind = "joke"
	Volume         Kind = "volume"
	Brightness     Kind = "brightness"
	Screenshot     Kind = "screenshot"
	Pause          Kind = "pause"
	Resume         Kind = "resume"
	Unrecognized   Kind = "unrecognized"
)

// Param keys used in Intent.Params.
const (
	ParamMessage    = "message"
	ParamFireAt     = "fire_at" // RFC 3339
	ParamRecurrence = "recurrence"
	ParamEvery      = "every" // Go duration string, interval recurrence only
	ParamApp        = "app"
	ParamQuery      = "query"
	ParamKey        = "key"
	ParamValue      = "value"
	ParamTarget     = "target"    // cancel: reminder id or message fragment
	ParamDirection  = "direction" // volume/brightness: up, down, set, mute, unmute
	ParamLevel      = "level"     // volume/brightness: percent for "set"
)

// Recurrence values carried in ParamRecurrence.
const (
	RecurNone     = "none"
	RecurDaily    = "daily"
	RecurWeekly   = "weekly"
	RecurInterval = "interval"
)

// Intent is one classified utterance. Immutable once returned.
type Intent struct {
	Kind   Kind              `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
}

func (i Intent) Param(key string) string {
	return i.Params[key]
}
