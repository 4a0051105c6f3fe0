package storage

import (
	"fmt"
	"sync"
	"testing"

	"sentinel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zap.NewNop().Sugar())
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 5; i++ {
		stored := s.InsertAttack(&core.HoneypotAttack{
			Service:    core.ServiceSSH,
			SourceIP:   "203.0.113.1",
			AttackType: "brute_force",
			Severity:   core.SeverityLow,
		})
		assert.Equal(t, int64(i), stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
	}

	// Per-type counters are independent
	alert := s.InsertAlert(&core.Alert{Title: "t", Severity: core.SeverityHigh, Category: core.CategorySystem})
	assert.Equal(t, int64(1), alert.ID)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore()

	for i := 0; i < 3; i++ {
		s.InsertAlert(&core.Alert{
			Title:    fmt.Sprintf("alert-%d", i),
			Severity: core.SeverityLow,
			Category: core.CategorySystem,
		})
	}

	alerts := s.ListAlerts(0, 0, false)
	require.Len(t, alerts, 3)
	assert.Equal(t, int64(3), alerts[0].ID)
	assert.Equal(t, int64(2), alerts[1].ID)
	assert.Equal(t, int64(1), alerts[2].ID)
}

func TestListLimitAndOffset(t *testing.T) {
	s := newTestStore()

	for i := 0; i < 10; i++ {
		s.InsertAttack(&core.HoneypotAttack{
			Service: core.ServiceHTTP, SourceIP: "198.51.100.2",
			AttackType: "sql_injection", Severity: core.SeverityMedium,
		})
	}

	page := s.ListAttacks(3, 2, "")
	require.Len(t, page, 3)
	assert.Equal(t, int64(8), page[0].ID)
	assert.Equal(t, int64(6), page[2].ID)
}

func TestListAttacksServiceFilter(t *testing.T) {
	s := newTestStore()

	s.InsertAttack(&core.HoneypotAttack{Service: core.ServiceSSH, SourceIP: "a", AttackType: "x", Severity: core.SeverityLow})
	s.InsertAttack(&core.HoneypotAttack{Service: core.ServiceFTP, SourceIP: "b", AttackType: "y", Severity: core.SeverityLow})
	s.InsertAttack(&core.HoneypotAttack{Service: core.ServiceSSH, SourceIP: "c", AttackType: "z", Severity: core.SeverityLow})

	ssh := s.ListAttacks(0, 0, core.ServiceSSH)
	require.Len(t, ssh, 2)
	for _, a := range ssh {
		assert.Equal(t, core.ServiceSSH, a.Service)
	}
}

func TestEmptyStoreListsAreEmptyNotNilErrors(t *testing.T) {
	s := newTestStore()

	assert.Empty(t, s.ListAlerts(10, 0, false))
	assert.Empty(t, s.ListAttacks(10, 0, ""))
	assert.Empty(t, s.ListThreats(10, 0))
	assert.Empty(t, s.ListPhishing(10, 0))
	assert.Empty(t, s.ListDeepfakes(10, 0))
}

func TestGetAlertNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.GetAlert(42)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCopyOnRead(t *testing.T) {
	s := newTestStore()

	s.InsertAlert(&core.Alert{
		Title:    "original",
		Severity: core.SeverityHigh,
		Category: core.CategoryEmail,
		Metadata: map[string]interface{}{"analysis_id": int64(1)},
	})

	got, err := s.GetAlert(1)
	require.NoError(t, err)

	// Mutating the returned record must not touch stored state
	got.Title = "tampered"
	got.IsRead = true
	got.Metadata["analysis_id"] = int64(999)

	again, err := s.GetAlert(1)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
	assert.False(t, again.IsRead)
	assert.Equal(t, int64(1), again.Metadata["analysis_id"])
}

func TestRoundTripFieldFidelity(t *testing.T) {
	s := newTestStore()

	in := &core.PhishingAnalysis{
		Content:             "click here to verify your account",
		Score:               87,
		Confidence:          91,
		SuspiciousLinkCount: 2,
		Indicators:          []string{"urgency language", "credential lure"},
	}
	stored := s.InsertPhishing(in)

	listed := s.ListPhishing(1, 0)
	require.Len(t, listed, 1)
	assert.Equal(t, stored, listed[0])
	assert.Equal(t, in.Content, listed[0].Content)
	assert.Equal(t, in.Score, listed[0].Score)
	assert.Equal(t, in.Confidence, listed[0].Confidence)
	assert.Equal(t, in.SuspiciousLinkCount, listed[0].SuspiciousLinkCount)
	assert.Equal(t, in.Indicators, listed[0].Indicators)
	assert.Equal(t, stored.CreatedAt, listed[0].CreatedAt)
}

func TestMarkAlertReadIdempotent(t *testing.T) {
	s := newTestStore()
	s.InsertAlert(&core.Alert{Title: "a", Severity: core.SeverityLow, Category: core.CategorySystem})

	first, err := s.MarkAlertRead(1)
	require.NoError(t, err)
	assert.True(t, first.IsRead)

	second, err := s.MarkAlertRead(1)
	require.NoError(t, err)
	assert.True(t, second.IsRead)

	_, err = s.MarkAlertRead(404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMarkAllAlertsRead(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 4; i++ {
		s.InsertAlert(&core.Alert{Title: "a", Severity: core.SeverityLow, Category: core.CategorySystem})
	}
	_, err := s.MarkAlertRead(2)
	require.NoError(t, err)

	assert.Equal(t, 3, s.MarkAllAlertsRead())
	assert.Equal(t, 0, s.MarkAllAlertsRead())

	counts := s.AlertCounts()
	assert.Equal(t, int64(4), counts.Total)
	assert.Equal(t, int64(0), counts.Unread)
}

func TestIncrementStatsRejectsNegative(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.IncrementStats(core.StatsDelta{HoneypotHits: 2}))
	err := s.IncrementStats(core.StatsDelta{HoneypotHits: -3})
	assert.ErrorIs(t, err, core.ErrInternalInconsistency)

	// Failed delta leaves stats untouched
	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.HoneypotHits)
}

func TestConcurrentStatsIncrements(t *testing.T) {
	s := newTestStore()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s.InsertAttack(&core.HoneypotAttack{
				Service: core.ServiceSSH, SourceIP: "203.0.113.7",
				AttackType: "brute_force", Severity: core.SeverityHigh,
			})
			_ = s.IncrementStats(core.StatsDelta{HoneypotHits: 1})
		}()
	}
	wg.Wait()

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.HoneypotHits)
	assert.Equal(t, int64(n), s.HoneypotStats().TotalAttacks)

	// Ids are unique and dense 1..n
	seen := make(map[int64]bool)
	for _, a := range s.ListAttacks(0, 0, "") {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
	assert.Len(t, seen, n)
}

func TestHoneypotStatsAggregation(t *testing.T) {
	s := newTestStore()

	for i := 0; i < 3; i++ {
		s.InsertAttack(&core.HoneypotAttack{Service: core.ServiceSSH, SourceIP: "203.0.113.1", AttackType: "brute_force", Severity: core.SeverityHigh})
	}
	s.InsertAttack(&core.HoneypotAttack{Service: core.ServiceHTTP, SourceIP: "198.51.100.9", AttackType: "path_traversal", Severity: core.SeverityLow})

	stats := s.HoneypotStats()
	assert.Equal(t, int64(4), stats.TotalAttacks)
	assert.Equal(t, int64(3), stats.ByService["ssh"])
	assert.Equal(t, int64(1), stats.ByService["http"])
	require.NotEmpty(t, stats.TopSourceIPs)
	assert.Equal(t, "203.0.113.1", stats.TopSourceIPs[0].Value)
	assert.Equal(t, int64(3), stats.TopSourceIPs[0].Count)
	assert.Equal(t, "brute_force", stats.TopAttackTypes[0].Value)
}
