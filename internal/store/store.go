package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no email with the given id exists.
	ErrNotFound = errors.New("email not found")
	// ErrDuplicateID is returned when an email id is added twice.
	ErrDuplicateID = errors.New("duplicate email id")
	// ErrInvalidID is returned when an email arrives without an id.
	ErrInvalidID = errors.New("invalid email id")
)

// Store holds the in-memory Email Record set for one simulation session.
// It is the only mutable state shared across email timelines besides the
// event log, so every access goes through the store's lock. A session owns
// its store; tests create as many independent stores as they need.
type Store struct {
	mu          sync.RWMutex
	emails      map[string]*Email
	order       []string
	securityLog []SecurityLogEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{emails: make(map[string]*Email)}
}

// Add registers a newly delivered email. The id must be unique.
func (s *Store) Add(e Email) error {
	if e.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	cp := copyEmail(&e)
	s.emails[e.ID] = &cp
	s.order = append(s.order, e.ID)
	return nil
}

// Get returns a copy of the email with the given id.
func (s *Store) Get(id string) (Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.emails[id]
	if !ok {
		return Email{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyEmail(e), nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	CampaignID string
	RiskLevel  string
	Status     string
}

// List returns copies of all emails matching the filter, newest first
// (the inbox ordering the bank dashboard renders).
func (s *Store) List(f ListFilter) []Email {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Email, 0, len(s.order))
	for _, id := range s.order {
		e := s.emails[id]
		if f.CampaignID != "" && e.CampaignID != f.CampaignID {
			continue
		}
		if f.RiskLevel != "" && e.RiskLevel != f.RiskLevel {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, copyEmail(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	return out
}

// Count returns the number of emails matching the filter.
func (s *Store) Count(f ListFilter) int {
	return len(s.List(f))
}

// AttachDetection attaches detection metadata to an email if none exists
// yet. Returns true when the metadata was attached, false when the email
// already carried one (the idempotent re-analysis case).
func (s *Store) AttachDetection(id string, d Detection) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Detection != nil {
		return false, nil
	}
	cp := d
	e.Detection = &cp
	return true, nil
}

// ResolveDetection applies the scheduled security action to an email whose
// detection timer has fired (or is overdue, via the reconciliation sweep).
// High-risk emails are blocked; medium-risk emails are reported and logged
// to the security log. The call is a no-op unless the email is still
// delivered with an unresolved will-be-detected verdict, so replaying it
// is always safe.
func (s *Store) ResolveDetection(id string, now time.Time, detectionMinutes float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Status != StatusDelivered || e.Detection == nil || !e.Detection.WillBeDetected || e.Detection.Resolved {
		return false, nil
	}
	switch {
	case e.RiskScore >= 70:
		e.Status = StatusBlocked
	case e.RiskScore >= 40:
		e.Status = StatusReported
		s.securityLog = append(s.securityLog, SecurityLogEntry{
			EmailID:    e.ID,
			CampaignID: e.CampaignID,
			Subject:    e.Subject,
			Sender:     e.SenderEmail,
			Target:     e.TargetName,
			RiskScore:  e.RiskScore,
			ReportedAt: now,
		})
	default:
		// Low-risk verdicts are never acted on; the email stays
		// delivered and the verdict stays pending.
		return false, nil
	}
	e.Detection.Resolved = true
	e.Detection.ResolvedAt = now
	e.Detection.DetectionMinutes = detectionMinutes
	return true, nil
}

// Block marks a delivered email as blocked by a manual admin action.
func (s *Store) Block(id string) error {
	return s.transition(id, StatusBlocked, false, time.Time{})
}

// Report marks a delivered email as reported by a manual admin action and
// appends a security-log entry.
func (s *Store) Report(id string, now time.Time) error {
	return s.transition(id, StatusReported, true, now)
}

// Approve marks a delivered email as safe.
func (s *Store) Approve(id string) error {
	return s.transition(id, StatusApproved, false, time.Time{})
}

func (s *Store) transition(id, status string, logIt bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.Status != StatusDelivered {
		return fmt.Errorf("email %s is %s, only delivered emails can transition", id, e.Status)
	}
	e.Status = status
	if logIt {
		s.securityLog = append(s.securityLog, SecurityLogEntry{
			EmailID:    e.ID,
			CampaignID: e.CampaignID,
			Subject:    e.Subject,
			Sender:     e.SenderEmail,
			Target:     e.TargetName,
			RiskScore:  e.RiskScore,
			ReportedAt: now,
		})
	}
	return nil
}

// SecurityLog returns a copy of the security log, oldest first.
func (s *Store) SecurityLog() []SecurityLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SecurityLogEntry, len(s.securityLog))
	copy(out, s.securityLog)
	return out
}

// Clear removes every email and security-log entry. Administrative reset,
// paired with clearing the event log.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = make(map[string]*Email)
	s.order = nil
	s.securityLog = nil
}

func copyEmail(e *Email) Email {
	cp := *e
	if e.Detection != nil {
		d := *e.Detection
		cp.Detection = &d
	}
	return cp
}
