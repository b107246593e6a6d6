package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/phishsim-monitor/internal/pkg/logger"
	"github.com/ignite/phishsim-monitor/internal/riskscore"
	"github.com/ignite/phishsim-monitor/internal/sim"
	"github.com/ignite/phishsim-monitor/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store      *store.Store
	engine     *sim.Engine
	detector   *sim.Detector
	aggregator *sim.Aggregator
	eventLog   *sim.EventLog
	clock      sim.Clock
	startTime  time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(st *store.Store, engine *sim.Engine, detector *sim.Detector,
	agg *sim.Aggregator, log *sim.EventLog, clock sim.Clock) *Handlers {
	return &Handlers{
		store:      st,
		engine:     engine,
		detector:   detector,
		aggregator: agg,
		eventLog:   log,
		clock:      clock,
		startTime:  time.Now(),
	}
}

// HealthCheck returns server status
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
		"emails": h.store.Count(store.ListFilter{}),
		"events": h.eventLog.Len(),
	})
}

type deployRequest struct {
	Emails []store.Email `json:"emails"`
}

type deployResult struct {
	ID        string `json:"id"`
	RiskScore int    `json:"risk_score"`
	RiskLevel string `json:"risk_level"`
	Error     string `json:"error,omitempty"`
}

// DeployEmails accepts a batch of generated emails, delivers them to the
// simulated inbox and starts their engagement and detection timelines.
// The batch is not transactional: each email succeeds or fails on its own
// and the response reports both.
//
//	POST /api/emails/deploy
func (h *Handlers) DeployEmails(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Emails) == 0 {
		respondError(w, http.StatusBadRequest, "emails array is required")
		return
	}

	now := h.clock.Now()
	results := make([]deployResult, 0, len(req.Emails))
	accepted := 0
	for _, email := range req.Emails {
		if email.ID == "" {
			results = append(results, deployResult{Error: store.ErrInvalidID.Error()})
			continue
		}
		if email.Status == "" {
			email.Status = store.StatusDelivered
		}
		if email.Status != store.StatusDelivered {
			results = append(results, deployResult{
				ID:    email.ID,
				Error: fmt.Sprintf("status %q is not deployable, only %q", email.Status, store.StatusDelivered),
			})
			continue
		}
		if email.ReceivedAt.IsZero() {
			email.ReceivedAt = now
		}
		if email.CreatedAt.IsZero() {
			email.CreatedAt = now
		}
		if email.RiskScore == 0 {
			email.RiskScore = riskscore.Score(riskscore.Input{
				Subject: email.Subject,
				Content: email.Content,
				Sender:  email.SenderEmail,
			})
		}
		email.RiskLevel = store.RiskLevelForScore(email.RiskScore)

		res := deployResult{ID: email.ID, RiskScore: email.RiskScore, RiskLevel: email.RiskLevel}
		if err := h.deployOne(email); err != nil {
			res.Error = err.Error()
		} else {
			accepted++
		}
		results = append(results, res)
	}

	logger.Info("deployed email batch", "accepted", accepted, "total", len(req.Emails))
	status := http.StatusOK
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, map[string]interface{}{
		"accepted": accepted,
		"results":  results,
	})
}

func (h *Handlers) deployOne(email store.Email) error {
	if err := h.store.Add(email); err != nil {
		return err
	}
	if err := h.engine.Deploy(email); err != nil {
		return err
	}
	if _, err := h.detector.Analyze(email.ID); err != nil {
		return fmt.Errorf("detection analysis: %w", err)
	}
	return nil
}

// ListEmails returns the inbox, newest first.
//
//	GET /api/emails?campaign_id=&risk=&status=
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	emails := h.store.List(store.ListFilter{
		CampaignID: r.URL.Query().Get("campaign_id"),
		RiskLevel:  r.URL.Query().Get("risk"),
		Status:     r.URL.Query().Get("status"),
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(emails),
		"emails": emails,
	})
}

// GetEmail returns one email with its detection metadata.
//
//	GET /api/emails/{id}
func (h *Handlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, email)
}

// BlockEmail applies a manual block action.
//
//	POST /api/emails/{id}/block
func (h *Handlers) BlockEmail(w http.ResponseWriter, r *http.Request) {
	h.manualAction(w, r, func(id string) error { return h.store.Block(id) })
}

// ReportEmail applies a manual report action and logs it to the security log.
//
//	POST /api/emails/{id}/report
func (h *Handlers) ReportEmail(w http.ResponseWriter, r *http.Request) {
	h.manualAction(w, r, func(id string) error { return h.store.Report(id, h.clock.Now()) })
}

// ApproveEmail marks an email as reviewed and safe.
//
//	POST /api/emails/{id}/approve
func (h *Handlers) ApproveEmail(w http.ResponseWriter, r *http.Request) {
	h.manualAction(w, r, func(id string) error { return h.store.Approve(id) })
}

func (h *Handlers) manualAction(w http.ResponseWriter, r *http.Request, fn func(id string) error) {
	id := chi.URLParam(r, "id")
	if err := fn(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	email, err := h.store.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, email)
}

// ListEvents returns the engagement event log in append order.
//
//	GET /api/events?campaign_id=
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := h.eventLog.List(r.URL.Query().Get("campaign_id"))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// ClearEvents resets the event log. With ?emails=true the inbox and
// security log are wiped too, returning the whole session to a blank
// state. In-flight engagement timers from the cleared run are orphaned
// and can never write into the new run.
//
//	DELETE /api/events
func (h *Handlers) ClearEvents(w http.ResponseWriter, r *http.Request) {
	h.eventLog.Clear()
	clearedEmails := false
	if r.URL.Query().Get("emails") == "true" {
		h.store.Clear()
		clearedEmails = true
	}
	logger.Info("event log cleared", "emails_cleared", fmt.Sprintf("%t", clearedEmails))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":        true,
		"emails_cleared": clearedEmails,
	})
}

// Metrics returns the full engagement and detection snapshot.
//
//	GET /api/metrics?campaign_id=
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.aggregator.Compute(r.URL.Query().Get("campaign_id"))
	respondJSON(w, http.StatusOK, snap)
}

// ModelMetrics returns the detection breakdown for one model key, using
// the fuzzy model matching rule.
//
//	GET /api/metrics/models/{model}?campaign_id=
func (h *Handlers) ModelMetrics(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	b := h.aggregator.ModelBreakdown(r.URL.Query().Get("campaign_id"), model)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"model":     model,
		"breakdown": b,
	})
}

// SecurityLog returns reported-phishing entries, oldest first.
//
//	GET /api/security-log
func (h *Handlers) SecurityLog(w http.ResponseWriter, r *http.Request) {
	entries := h.store.SecurityLog()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// ScoreEmail runs the standalone risk scorer over submitted material.
//
//	POST /api/score
func (h *Handlers) ScoreEmail(w http.ResponseWriter, r *http.Request) {
	var in riskscore.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	b := riskscore.Analyze(in)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"risk_score": b.Total,
		"risk_level": store.RiskLevelForScore(b.Total),
		"breakdown":  b,
	})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err.Error())
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
