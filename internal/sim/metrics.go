package sim

import (
	"sort"

	"github.com/ignite/phishsim-monitor/internal/store"
)

// Snapshot is a derived, recomputed-on-demand aggregate over the event
// log and the email store. Never persisted as a source of truth.
type Snapshot struct {
	CampaignID string `json:"campaign_id,omitempty"`

	// Engagement counts, from the event log.
	Sent     int `json:"sent"`
	Opened   int `json:"opened"`
	Clicked  int `json:"clicked"`
	Reported int `json:"reported"`

	// Engagement rates, percentages. Everything normalizes by sent
	// except click-through, which normalizes by opened.
	OpenRate         float64 `json:"open_rate"`
	ClickRate        float64 `json:"click_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
	ReportRate       float64 `json:"report_rate"`

	MedianTimeToClickMinutes float64 `json:"median_time_to_click_minutes"`
	AvgTimeToOpenMinutes     float64 `json:"avg_time_to_open_minutes"`

	// Detection side, from email records rather than events.
	TotalEmails int `json:"total_emails"`
	Detected    int `json:"detected"`
	Bypassed    int `json:"bypassed"`
	Pending     int `json:"pending"`

	DetectionRate float64 `json:"detection_rate"`
	BypassRate    float64 `json:"bypass_rate"`

	// Projected rates apportion pending emails by the current
	// detected:bypassed ratio, the formula the dashboards have always
	// shown.
	ProjectedDetectionRate float64 `json:"projected_detection_rate"`
	ProjectedBypassRate    float64 `json:"projected_bypass_rate"`

	// Corrected projection uses the pending emails' already-sampled
	// will-be-detected verdicts instead of the ratio proxy, which
	// ignores that known information.
	ProjectedDetectionRateCorrected float64 `json:"projected_detection_rate_corrected"`
	ProjectedBypassRateCorrected    float64 `json:"projected_bypass_rate_corrected"`

	AvgDetectionTimeMinutes float64 `json:"avg_detection_time_minutes"`

	ByAttackLevel map[string]*DetectionBreakdown `json:"by_attack_level"`
	ByModel       map[string]*DetectionBreakdown `json:"by_model"`
}

// DetectionBreakdown replicates the detected/bypassed computation for a
// subset of emails (one attack level, one model).
type DetectionBreakdown struct {
	Total         int     `json:"total"`
	Detected      int     `json:"detected"`
	Bypassed      int     `json:"bypassed"`
	Pending       int     `json:"pending"`
	DetectionRate float64 `json:"detection_rate"`
	BypassRate    float64 `json:"bypass_rate"`
}

// Aggregator computes metric snapshots. Pull model: callers ask, nothing
// is pushed. Reads see a consistent slice of the log as of the call.
type Aggregator struct {
	log   *EventLog
	store *store.Store
}

// NewAggregator wires an aggregator over a session's log and store.
func NewAggregator(log *EventLog, st *store.Store) *Aggregator {
	return &Aggregator{log: log, store: st}
}

// Compute builds a snapshot, optionally restricted to one campaign.
// Every ratio is zero-guarded: empty denominators yield 0, never NaN.
func (a *Aggregator) Compute(campaignID string) Snapshot {
	snap := Snapshot{
		CampaignID:    campaignID,
		ByAttackLevel: make(map[string]*DetectionBreakdown),
		ByModel:       make(map[string]*DetectionBreakdown),
	}

	events := a.log.List(campaignID)
	var clickTimes, openTimes []float64
	for _, e := range events {
		switch e.Kind {
		case EventSent:
			snap.Sent++
		case EventOpened:
			snap.Opened++
			openTimes = append(openTimes, e.MinutesSinceSent)
		case EventClicked:
			snap.Clicked++
			clickTimes = append(clickTimes, e.MinutesSinceSent)
		case EventReported:
			snap.Reported++
		}
	}

	snap.OpenRate = pct(snap.Opened, snap.Sent)
	snap.ClickRate = pct(snap.Clicked, snap.Sent)
	snap.ClickThroughRate = pct(snap.Clicked, snap.Opened)
	snap.ReportRate = pct(snap.Reported, snap.Sent)
	snap.MedianTimeToClickMinutes = median(clickTimes)
	snap.AvgTimeToOpenMinutes = mean(openTimes)

	emails := a.store.List(store.ListFilter{CampaignID: campaignID})
	snap.TotalEmails = len(emails)

	var detectionTimes []float64
	pendingWillDetect := 0
	for i := range emails {
		e := &emails[i]
		detected, bypassed, pending := classify(e)
		if detected {
			snap.Detected++
		}
		if bypassed {
			snap.Bypassed++
		}
		if pending {
			snap.Pending++
			pendingWillDetect++ // pending implies will_be_detected
		}
		if e.Detection != nil && e.Detection.Resolved {
			detectionTimes = append(detectionTimes, e.Detection.DetectionMinutes)
		}

		level := e.AttackLevel
		if _, ok := snap.ByAttackLevel[level]; !ok {
			snap.ByAttackLevel[level] = &DetectionBreakdown{}
		}
		tally(snap.ByAttackLevel[level], detected, bypassed, pending)

		model := e.Model
		if _, ok := snap.ByModel[model]; !ok {
			snap.ByModel[model] = &DetectionBreakdown{}
		}
		tally(snap.ByModel[model], detected, bypassed, pending)
	}

	snap.DetectionRate = pct(snap.Detected, snap.TotalEmails)
	snap.BypassRate = pct(snap.Bypassed, snap.TotalEmails)
	snap.AvgDetectionTimeMinutes = mean(detectionTimes)

	// Projection: split pending by the resolved detected:bypassed
	// ratio. With nothing resolved yet the projection degenerates to
	// the actual rates.
	resolved := snap.Detected + snap.Bypassed
	projDetected := float64(snap.Detected)
	projBypassed := float64(snap.Bypassed)
	if resolved > 0 && snap.Pending > 0 {
		share := float64(snap.Detected) / float64(resolved)
		projDetected += float64(snap.Pending) * share
		projBypassed += float64(snap.Pending) * (1 - share)
	}
	snap.ProjectedDetectionRate = pctf(projDetected, snap.TotalEmails)
	snap.ProjectedBypassRate = pctf(projBypassed, snap.TotalEmails)

	snap.ProjectedDetectionRateCorrected = pct(snap.Detected+pendingWillDetect, snap.TotalEmails)
	snap.ProjectedBypassRateCorrected = pct(snap.Bypassed+(snap.Pending-pendingWillDetect), snap.TotalEmails)

	for _, b := range snap.ByAttackLevel {
		finishBreakdown(b)
	}
	for _, b := range snap.ByModel {
		finishBreakdown(b)
	}
	return snap
}

// ModelBreakdown computes a detection breakdown for a requested model
// key using the fuzzy two-way substring match (see ModelsMatch). This is
// the lookup the dashboards use for arbitrary model queries; the keyed
// ByModel map in a snapshot uses exact model strings so its counts sum
// to the global totals.
func (a *Aggregator) ModelBreakdown(campaignID, modelKey string) DetectionBreakdown {
	b := DetectionBreakdown{}
	for _, e := range a.store.List(store.ListFilter{CampaignID: campaignID}) {
		if !ModelsMatch(e.Model, modelKey) {
			continue
		}
		detected, bypassed, pending := classify(&e)
		tally(&b, detected, bypassed, pending)
	}
	finishBreakdown(&b)
	return b
}

// classify buckets one email: detected (terminal blocked/reported),
// bypassed (delivered with a negative or absent verdict), or pending
// (delivered, positive verdict, action not yet applied). Approved emails
// count only toward the total.
func classify(e *store.Email) (detected, bypassed, pending bool) {
	switch e.Status {
	case store.StatusBlocked, store.StatusReported:
		return true, false, false
	case store.StatusDelivered:
		if e.Detection != nil && e.Detection.WillBeDetected {
			return false, false, true
		}
		return false, true, false
	default:
		return false, false, false
	}
}

func tally(b *DetectionBreakdown, detected, bypassed, pending bool) {
	b.Total++
	if detected {
		b.Detected++
	}
	if bypassed {
		b.Bypassed++
	}
	if pending {
		b.Pending++
	}
}

func finishBreakdown(b *DetectionBreakdown) {
	b.DetectionRate = pct(b.Detected, b.Total)
	b.BypassRate = pct(b.Bypassed, b.Total)
}

func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func pctf(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den) * 100
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// median returns the middle of the sorted values; an even count averages
// the two middle values. Empty input yields 0.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
