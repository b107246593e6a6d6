package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/phishsim-monitor/internal/pkg/logger"
	"github.com/ignite/phishsim-monitor/internal/store"
)

// ErrInvalidInput is returned when a generation signal arrives without a
// usable email identifier. Nothing is appended and no timers start.
var ErrInvalidInput = errors.New("invalid input")

// EngagementConfig tunes the human-behavior timing model.
type EngagementConfig struct {
	// Mean exponential delays, in simulated minutes.
	MeanOpenDelayMinutes   float64
	MeanClickDelayMinutes  float64
	MeanReportDelayMinutes float64

	// ModelMinute is the wall-clock duration one simulated minute takes
	// on the engine's clock. time.Minute runs in real time; smaller
	// values compress a campaign into a watchable demo.
	ModelMinute time.Duration
}

// DefaultEngagementConfig returns the standard timing model.
func DefaultEngagementConfig() EngagementConfig {
	return EngagementConfig{
		MeanOpenDelayMinutes:   10,
		MeanClickDelayMinutes:  6,
		MeanReportDelayMinutes: 4,
		ModelMinute:            time.Minute,
	}
}

// Engine runs one stochastic engagement timeline per deployed email:
// sent → opened → clicked → reported, with every stage gated by a single
// probability draw and separated by an exponentially distributed delay.
// A later stage is only ever scheduled after its predecessor fires, so
// causal ordering needs no further enforcement. Timelines for different
// emails are independent; the event log is the only shared sink.
type Engine struct {
	cfg   EngagementConfig
	clock Clock
	rng   *Rand
	log   *EventLog
}

// NewEngine wires an engagement engine to its session's event log.
func NewEngine(cfg EngagementConfig, clock Clock, rng *Rand, log *EventLog) *Engine {
	if cfg.ModelMinute <= 0 {
		cfg.ModelMinute = time.Minute
	}
	return &Engine{cfg: cfg, clock: clock, rng: rng, log: log}
}

// Deploy starts the engagement timeline for a freshly generated email.
// The sent event is emitted synchronously; everything downstream is
// scheduled. Each probability draw happens exactly once, at its branch
// point: open? at deploy, click? when the open fires, report? when its
// predecessor fires.
func (e *Engine) Deploy(email store.Email) error {
	if email.ID == "" {
		return fmt.Errorf("%w: missing email id", ErrInvalidInput)
	}

	gen := e.log.Generation()
	e.append(gen, Event{
		Kind:       EventSent,
		EmailID:    email.ID,
		TargetID:   email.TargetID,
		CampaignID: email.CampaignID,
		Timestamp:  e.clock.Now(),
	})

	profile := ProfileFor(email.AttackLevel)

	if e.rng.Bernoulli(profile.OpenProb) {
		openDelay := e.rng.ExpMinutes(e.cfg.MeanOpenDelayMinutes)
		e.schedule(openDelay, func() {
			e.onOpened(gen, email, profile, openDelay)
		})
		return nil
	}

	// Unopened emails can still register a click: automated link
	// scanners follow URLs within seconds of delivery.
	if e.rng.Bernoulli(phantomClickProb) {
		seconds := e.rng.UniformRange(1, 30)
		minutes := seconds / 60
		e.schedule(minutes, func() {
			e.append(gen, Event{
				Kind:             EventClicked,
				EmailID:          email.ID,
				TargetID:         email.TargetID,
				CampaignID:       email.CampaignID,
				Timestamp:        e.clock.Now(),
				MinutesSinceSent: minutes,
				Phantom:          true,
			})
		})
	}
	return nil
}

func (e *Engine) onOpened(gen uint64, email store.Email, profile EngagementProfile, openedAt float64) {
	e.append(gen, Event{
		Kind:             EventOpened,
		EmailID:          email.ID,
		TargetID:         email.TargetID,
		CampaignID:       email.CampaignID,
		Timestamp:        e.clock.Now(),
		MinutesSinceSent: openedAt,
	})

	if e.rng.Bernoulli(profile.ClickGivenOpen) {
		clickDelay := e.rng.ExpMinutes(e.cfg.MeanClickDelayMinutes)
		clickedAt := openedAt + clickDelay
		e.schedule(clickDelay, func() {
			e.onClicked(gen, email, clickedAt)
		})
		return
	}

	// Opened, smelled a rat, never clicked.
	if e.rng.Bernoulli(reportBeforeClickProb) {
		reportDelay := e.rng.ExpMinutes(e.cfg.MeanReportDelayMinutes)
		reportedAt := openedAt + reportDelay
		e.schedule(reportDelay, func() {
			e.append(gen, Event{
				Kind:                EventReported,
				EmailID:             email.ID,
				TargetID:            email.TargetID,
				CampaignID:          email.CampaignID,
				Timestamp:           e.clock.Now(),
				MinutesSinceSent:    reportedAt,
				ReportedBeforeClick: true,
			})
		})
	}
}

func (e *Engine) onClicked(gen uint64, email store.Email, clickedAt float64) {
	e.append(gen, Event{
		Kind:             EventClicked,
		EmailID:          email.ID,
		TargetID:         email.TargetID,
		CampaignID:       email.CampaignID,
		Timestamp:        e.clock.Now(),
		MinutesSinceSent: clickedAt,
	})

	if e.rng.Bernoulli(reportAfterClickProb) {
		reportDelay := e.rng.ExpMinutes(e.cfg.MeanReportDelayMinutes)
		reportedAt := clickedAt + reportDelay
		e.schedule(reportDelay, func() {
			e.append(gen, Event{
				Kind:               EventReported,
				EmailID:            email.ID,
				TargetID:           email.TargetID,
				CampaignID:         email.CampaignID,
				Timestamp:          e.clock.Now(),
				MinutesSinceSent:   reportedAt,
				ReportedAfterClick: true,
			})
		})
	}
}

func (e *Engine) schedule(minutes float64, fn func()) {
	e.clock.Schedule(time.Duration(minutes*float64(e.cfg.ModelMinute)), fn)
}

func (e *Engine) append(gen uint64, ev Event) {
	ev.ID = uuid.NewString()
	if !e.log.Append(gen, ev) {
		logger.Debug("dropped event from cleared run",
			"kind", string(ev.Kind), "email_id", ev.EmailID)
	}
}
