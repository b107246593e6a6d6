package sim

import (
	"sync"
	"time"
)

// EventKind tags an engagement lifecycle event.
type EventKind string

const (
	EventSent     EventKind = "sent"
	EventOpened   EventKind = "opened"
	EventClicked  EventKind = "clicked"
	EventReported EventKind = "reported"
)

// Event is one timestamped engagement lifecycle record. Appended once,
// never mutated. MinutesSinceSent is carried in simulated minutes (the sum
// of sampled delays), so it is stable regardless of how far the clock
// compresses real time.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	EmailID    string    `json:"email_id"`
	TargetID   string    `json:"target_id,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	MinutesSinceSent float64 `json:"minutes_since_sent,omitempty"`

	Phantom             bool `json:"phantom,omitempty"`
	ReportedBeforeClick bool `json:"reported_before_click,omitempty"`
	ReportedAfterClick  bool `json:"reported_after_click,omitempty"`
}

// EventLog is the append-only substrate every metric is computed from.
// One log per simulation session; appends are atomic and List hands back
// a snapshot copy so aggregation never observes a half-written record.
//
// Clear bumps a generation counter. Scheduled timeline callbacks capture
// the generation their email started under and pass it back on append;
// appends from a cleared generation are dropped, so orphaned timers from
// a reset run cannot resurrect events.
type EventLog struct {
	mu       sync.RWMutex
	events   []Event
	gen      uint64
	onAppend func(Event)
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// OnAppend registers a hook invoked (outside the log's lock) for every
// accepted append. Used to push events to the live feed. Set once during
// wiring, before any appends.
func (l *EventLog) OnAppend(fn func(Event)) {
	l.mu.Lock()
	l.onAppend = fn
	l.mu.Unlock()
}

// Generation returns the current clear-generation. Timelines capture it
// when an email is deployed.
func (l *EventLog) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

// Append adds one event if gen is still current. Returns false when the
// event belonged to a cleared run and was dropped.
func (l *EventLog) Append(gen uint64, e Event) bool {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return false
	}
	l.events = append(l.events, e)
	hook := l.onAppend
	l.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return true
}

// List returns a copy of the ordered event sequence, optionally filtered
// by campaign. Empty campaignID means everything.
func (l *EventLog) List(campaignID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if campaignID != "" && e.CampaignID != campaignID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the total number of events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Clear irreversibly empties the log and invalidates every outstanding
// scheduled append.
func (l *EventLog) Clear() {
	l.mu.Lock()
	l.events = nil
	l.gen++
	l.mu.Unlock()
}
