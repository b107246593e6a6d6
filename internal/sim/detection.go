package sim

import (
	"fmt"
	"time"

	"github.com/ignite/phishsim-monitor/internal/pkg/logger"
	"github.com/ignite/phishsim-monitor/internal/store"
)

// Detection noise band: real-world filter consistency wobbles, so the
// sampled rate gets a uniform ±5 point jitter.
const detectionNoise = 0.05

// Response-time windows in simulated minutes, keyed by risk tier.
// Hotter emails get looked at faster.
var responseWindows = []struct {
	minScore int
	lo, hi   float64
}{
	{70, 2, 5},
	{40, 5, 15},
	{0, 10, 30},
}

// Detector simulates the bank's automated email security stack. For each
// delivered email it samples, once, whether and when the stack notices:
// high-risk mail gets blocked, medium-risk mail gets reported to the
// security log, low-risk mail is never acted on even when nominally
// flagged.
type Detector struct {
	clock Clock
	rng   *Rand
	store *store.Store

	// ModelMinute mirrors the engagement engine's time compression.
	modelMinute time.Duration
}

// NewDetector builds a detector over the session's email store.
func NewDetector(clock Clock, rng *Rand, st *store.Store, modelMinute time.Duration) *Detector {
	if modelMinute <= 0 {
		modelMinute = time.Minute
	}
	return &Detector{clock: clock, rng: rng, store: st, modelMinute: modelMinute}
}

// Analyze computes detection metadata for a delivered email and, when the
// verdict warrants it, schedules the resolution action. Idempotent: an
// email that already carries metadata is left untouched and nothing is
// rescheduled.
func (d *Detector) Analyze(emailID string) (store.Detection, error) {
	email, err := d.store.Get(emailID)
	if err != nil {
		return store.Detection{}, err
	}
	if email.Detection != nil {
		return *email.Detection, nil
	}
	if email.Status != store.StatusDelivered {
		return store.Detection{}, fmt.Errorf("email %s is %s, not delivered", emailID, email.Status)
	}

	base := BaseDetectionRateFor(email.AttackLevel)
	adj := AdjustmentForModel(email.Model)
	adjusted := clamp01(base + adj)
	final := clamp01(adjusted + d.rng.UniformRange(-detectionNoise, detectionNoise))

	det := store.Detection{
		BaseRate:        base,
		ModelAdjustment: adj,
		FinalRate:       final,
		WillBeDetected:  d.rng.Bernoulli(final),
		ResponseMinutes: d.sampleResponseMinutes(email.RiskScore),
		AnalyzedAt:      d.clock.Now(),
	}

	attached, err := d.store.AttachDetection(emailID, det)
	if err != nil {
		return store.Detection{}, err
	}
	if !attached {
		// Lost a race with another Analyze; the first verdict stands.
		email, _ = d.store.Get(emailID)
		return *email.Detection, nil
	}

	if det.WillBeDetected && email.RiskScore >= 40 {
		due := email.ReceivedAt.Add(d.toWall(det.ResponseMinutes))
		d.clock.Schedule(due.Sub(d.clock.Now()), func() {
			d.resolve(emailID, email.ReceivedAt)
		})
	}

	logger.Debug("analyzed email",
		"email_id", emailID,
		"level", email.AttackLevel,
		"final_rate", fmt.Sprintf("%.3f", det.FinalRate),
		"will_be_detected", fmt.Sprintf("%t", det.WillBeDetected))
	return det, nil
}

// Reconcile sweeps for emails whose scheduled resolution time has already
// passed without the action being applied (timer lost to a restart, or a
// clock that never reached the due instant) and applies it now. Safe to
// run on any cadence; already-resolved or terminal emails are skipped
// silently. Returns how many actions it applied.
func (d *Detector) Reconcile() int {
	now := d.clock.Now()
	applied := 0
	for _, email := range d.store.List(store.ListFilter{Status: store.StatusDelivered}) {
		det := email.Detection
		if det == nil || !det.WillBeDetected || det.Resolved || email.RiskScore < 40 {
			continue
		}
		due := email.ReceivedAt.Add(d.toWall(det.ResponseMinutes))
		if due.After(now) {
			continue
		}
		if d.resolve(email.ID, email.ReceivedAt) {
			applied++
		}
	}
	if applied > 0 {
		logger.Info("reconciliation sweep applied overdue detections", "count", applied)
	}
	return applied
}

// resolve applies the block/report action. Returns false when the email
// already left delivered status or the verdict was already resolved; the
// store performs that check under its own lock, so replays are harmless.
func (d *Detector) resolve(emailID string, receivedAt time.Time) bool {
	now := d.clock.Now()
	minutes := float64(now.Sub(receivedAt)) / float64(d.modelMinute)
	if minutes < 0 {
		minutes = 0
	}
	ok, err := d.store.ResolveDetection(emailID, now, minutes)
	if err != nil {
		logger.Warn("resolve failed", "email_id", emailID, "error", err.Error())
		return false
	}
	if ok {
		logger.Info("security action applied", "email_id", emailID,
			"detection_minutes", fmt.Sprintf("%.1f", minutes))
	}
	return ok
}

func (d *Detector) sampleResponseMinutes(riskScore int) float64 {
	for _, w := range responseWindows {
		if riskScore >= w.minScore {
			return d.rng.UniformRange(w.lo, w.hi)
		}
	}
	return d.rng.UniformRange(10, 30)
}

func (d *Detector) toWall(minutes float64) time.Duration {
	return time.Duration(minutes * float64(d.modelMinute))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
