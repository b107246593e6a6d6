package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmail(id string, riskScore int) Email {
	return Email{
		ID:          id,
		CampaignID:  "c1",
		Subject:     "Account verification required",
		SenderEmail: "security@examp1e-bank.com",
		TargetName:  "Dana Whitfield",
		Model:       "gpt-4",
		AttackLevel: LevelAdvanced,
		RiskScore:   riskScore,
		RiskLevel:   RiskLevelForScore(riskScore),
		Status:      StatusDelivered,
		ReceivedAt:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAddAndGet(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 80)))

	got, err := s.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, RiskHigh, got.RiskLevel)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddValidation(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Add(Email{}), ErrInvalidID)

	require.NoError(t, s.Add(testEmail("e1", 50)))
	assert.ErrorIs(t, s.Add(testEmail("e1", 50)), ErrDuplicateID)
	assert.Equal(t, 1, s.Count(ListFilter{}))
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	e := testEmail("e1", 80)
	e.Detection = &Detection{WillBeDetected: true}
	require.NoError(t, s.Add(e))

	got, err := s.Get("e1")
	require.NoError(t, err)
	got.Subject = "mutated"
	got.Detection.WillBeDetected = false

	again, err := s.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, "Account verification required", again.Subject)
	assert.True(t, again.Detection.WillBeDetected)
}

func TestListFiltersAndOrdering(t *testing.T) {
	s := New()
	old := testEmail("e1", 80)
	old.ReceivedAt = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	recent := testEmail("e2", 30)
	recent.ReceivedAt = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	other := testEmail("e3", 50)
	other.CampaignID = "c2"
	require.NoError(t, s.Add(old))
	require.NoError(t, s.Add(recent))
	require.NoError(t, s.Add(other))

	all := s.List(ListFilter{})
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "e2", all[0].ID)

	assert.Len(t, s.List(ListFilter{CampaignID: "c1"}), 2)
	assert.Len(t, s.List(ListFilter{RiskLevel: RiskLow}), 1)
	assert.Len(t, s.List(ListFilter{Status: StatusDelivered}), 3)
	assert.Empty(t, s.List(ListFilter{CampaignID: "c1", RiskLevel: RiskMedium}))
}

func TestAttachDetectionOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 80)))

	attached, err := s.AttachDetection("e1", Detection{FinalRate: 0.5})
	require.NoError(t, err)
	assert.True(t, attached)

	attached, err = s.AttachDetection("e1", Detection{FinalRate: 0.9})
	require.NoError(t, err)
	assert.False(t, attached)

	got, _ := s.Get("e1")
	assert.Equal(t, 0.5, got.Detection.FinalRate)

	_, err = s.AttachDetection("missing", Detection{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveDetectionHighRiskBlocks(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 85)))
	_, err := s.AttachDetection("e1", Detection{WillBeDetected: true, ResponseMinutes: 3})
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 9, 5, 0, 0, time.UTC)
	ok, err := s.ResolveDetection("e1", now, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := s.Get("e1")
	assert.Equal(t, StatusBlocked, got.Status)
	assert.True(t, got.Detection.Resolved)
	assert.Equal(t, now, got.Detection.ResolvedAt)
	assert.Equal(t, 5.0, got.Detection.DetectionMinutes)
	assert.Empty(t, s.SecurityLog())

	// Replays are no-ops.
	ok, err = s.ResolveDetection("e1", now.Add(time.Minute), 6)
	require.NoError(t, err)
	assert.False(t, ok)
	got, _ = s.Get("e1")
	assert.Equal(t, 5.0, got.Detection.DetectionMinutes)
}

func TestResolveDetectionMediumRiskReportsAndLogs(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 55)))
	_, err := s.AttachDetection("e1", Detection{WillBeDetected: true})
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 9, 10, 0, 0, time.UTC)
	ok, err := s.ResolveDetection("e1", now, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := s.Get("e1")
	assert.Equal(t, StatusReported, got.Status)

	log := s.SecurityLog()
	require.Len(t, log, 1)
	assert.Equal(t, "e1", log[0].EmailID)
	assert.Equal(t, "Dana Whitfield", log[0].Target)
	assert.Equal(t, 55, log[0].RiskScore)
	assert.Equal(t, now, log[0].ReportedAt)
}

func TestResolveDetectionLowRiskIsNoOp(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 25)))
	_, err := s.AttachDetection("e1", Detection{WillBeDetected: true})
	require.NoError(t, err)

	ok, err := s.ResolveDetection("e1", time.Now(), 3)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.Get("e1")
	assert.Equal(t, StatusDelivered, got.Status)
	assert.False(t, got.Detection.Resolved)
}

func TestResolveDetectionRequiresPositiveUnresolvedVerdict(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 85)))

	// No detection metadata at all.
	ok, err := s.ResolveDetection("e1", time.Now(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Negative verdict.
	_, err = s.AttachDetection("e1", Detection{WillBeDetected: false})
	require.NoError(t, err)
	ok, err = s.ResolveDetection("e1", time.Now(), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Already transitioned away from delivered.
	require.NoError(t, s.Add(testEmail("e2", 85)))
	_, err = s.AttachDetection("e2", Detection{WillBeDetected: true})
	require.NoError(t, err)
	require.NoError(t, s.Approve("e2"))
	ok, err = s.ResolveDetection("e2", time.Now(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManualTransitions(t *testing.T) {
	s := New()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.Add(testEmail(id, 60)))
	}

	require.NoError(t, s.Block("e1"))
	require.NoError(t, s.Report("e2", now))
	require.NoError(t, s.Approve("e3"))

	e1, _ := s.Get("e1")
	e2, _ := s.Get("e2")
	e3, _ := s.Get("e3")
	assert.Equal(t, StatusBlocked, e1.Status)
	assert.Equal(t, StatusReported, e2.Status)
	assert.Equal(t, StatusApproved, e3.Status)

	// Manual report goes to the security log; block and approve do not.
	require.Len(t, s.SecurityLog(), 1)
	assert.Equal(t, "e2", s.SecurityLog()[0].EmailID)

	// Terminal states reject further transitions.
	assert.Error(t, s.Block("e3"))
	assert.Error(t, s.Report("e1", now))
	assert.Error(t, s.Approve("e2"))
	assert.ErrorIs(t, s.Block("missing"), ErrNotFound)
}

func TestClear(t *testing.T) {
	s := New()
	require.NoError(t, s.Add(testEmail("e1", 55)))
	require.NoError(t, s.Report("e1", time.Now()))
	require.Len(t, s.SecurityLog(), 1)

	s.Clear()
	assert.Zero(t, s.Count(ListFilter{}))
	assert.Empty(t, s.SecurityLog())

	// IDs are reusable after a clear.
	assert.NoError(t, s.Add(testEmail("e1", 55)))
}

func TestRiskLevelForScore(t *testing.T) {
	assert.Equal(t, RiskLow, RiskLevelForScore(0))
	assert.Equal(t, RiskLow, RiskLevelForScore(39))
	assert.Equal(t, RiskMedium, RiskLevelForScore(40))
	assert.Equal(t, RiskMedium, RiskLevelForScore(69))
	assert.Equal(t, RiskHigh, RiskLevelForScore(70))
	assert.Equal(t, RiskHigh, RiskLevelForScore(100))
}
