package store

import "time"

// Attack sophistication levels declared by the upstream generator.
const (
	LevelBasic    = "basic"
	LevelAdvanced = "advanced"
	LevelExpert   = "expert"
)

// Lifecycle statuses of an email in the simulated inbox.
const (
	StatusDelivered = "delivered"
	StatusBlocked   = "blocked"
	StatusReported  = "reported"
	StatusApproved  = "approved"
)

// Risk levels derived from the 0-100 risk score.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Email is a generated phishing email delivered to the simulated bank inbox.
// It is produced by the upstream generation subsystem; the simulation engine
// only writes back detection metadata and status transitions.
type Email struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaign_id"`
	TargetID    string `json:"target_id"`
	TargetName  string `json:"target_name,omitempty"`
	TargetEmail string `json:"target_email,omitempty"`

	Subject     string `json:"subject"`
	Content     string `json:"content,omitempty"`
	Sender      string `json:"sender,omitempty"`
	SenderEmail string `json:"sender_email,omitempty"`

	Model        string `json:"model"`
	AttackLevel  string `json:"attack_level"`
	UrgencyLevel string `json:"urgency_level,omitempty"`

	RiskScore int    `json:"risk_score"`
	RiskLevel string `json:"risk_level"`
	Status    string `json:"status"`

	CreatedAt  time.Time `json:"created_at"`
	ReceivedAt time.Time `json:"received_at"`

	Detection *Detection `json:"detection,omitempty"`
}

// Detection is the simulated security system's per-email verdict and timing.
// Computed once per delivered email; immutable afterwards except for the
// scheduled→resolved transition.
type Detection struct {
	BaseRate        float64   `json:"base_rate"`
	ModelAdjustment float64   `json:"model_adjustment"`
	FinalRate       float64   `json:"final_rate"`
	WillBeDetected  bool      `json:"will_be_detected"`
	ResponseMinutes float64   `json:"response_minutes"`
	AnalyzedAt      time.Time `json:"analyzed_at"`

	Resolved         bool      `json:"resolved"`
	ResolvedAt       time.Time `json:"resolved_at,omitempty"`
	DetectionMinutes float64   `json:"detection_minutes,omitempty"`
}

// SecurityLogEntry records a phishing report raised by the simulated
// security system or a manual admin action.
type SecurityLogEntry struct {
	EmailID    string    `json:"email_id"`
	CampaignID string    `json:"campaign_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Target     string    `json:"target"`
	RiskScore  int       `json:"risk_score"`
	ReportedAt time.Time `json:"reported_at"`
}

// RiskLevelForScore derives the risk tier from a 0-100 score:
// below 40 is low, 40-69 medium, 70 and above high.
func RiskLevelForScore(score int) string {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}
