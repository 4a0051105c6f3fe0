// Package storage provides the in-memory event store for the sentinel
// correlation core. All typed records (analyses, attacks, threats, alerts)
// and the SystemStats singleton live behind one serialized-access API so
// concurrent submissions never lose updates.
package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"sentinel/core"

	"go.uber.org/zap"
)

// topValuesLimit bounds the top-N lists in honeypot stats
const topValuesLimit = 5

// MemoryStore is an append-only in-memory store with per-type monotonic
// ids. Reads return deep copies so callers can never corrupt stored state
// through returned references.
type MemoryStore struct {
	mu sync.RWMutex

	phishing  []*core.PhishingAnalysis
	deepfakes []*core.DeepfakeAnalysis
	attacks   []*core.HoneypotAttack
	threats   []*core.Threat
	alerts    []*core.Alert

	nextPhishingID int64
	nextDeepfakeID int64
	nextAttackID   int64
	nextThreatID   int64
	nextAlertID    int64

	stats core.SystemStats

	logger *zap.SugaredLogger
}

// NewMemoryStore creates an empty store
func NewMemoryStore(logger *zap.SugaredLogger) *MemoryStore {
	return &MemoryStore{
		stats:  core.SystemStats{UpdatedAt: time.Now().UTC()},
		logger: logger,
	}
}

// InsertPhishing stores a phishing analysis, assigning its id and creation
// timestamp. Returns a copy of the stored record.
func (s *MemoryStore) InsertPhishing(a *core.PhishingAnalysis) *core.PhishingAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPhishingID++
	stored := a.Clone()
	stored.ID = s.nextPhishingID
	stored.CreatedAt = time.Now().UTC()
	s.phishing = append(s.phishing, stored)
	return stored.Clone()
}

// InsertDeepfake stores a deepfake analysis, assigning id and timestamp.
func (s *MemoryStore) InsertDeepfake(a *core.DeepfakeAnalysis) *core.DeepfakeAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDeepfakeID++
	stored := a.Clone()
	stored.ID = s.nextDeepfakeID
	stored.CreatedAt = time.Now().UTC()
	s.deepfakes = append(s.deepfakes, stored)
	return stored.Clone()
}

// InsertAttack stores a honeypot attack, assigning id and timestamp.
func (s *MemoryStore) InsertAttack(a *core.HoneypotAttack) *core.HoneypotAttack {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAttackID++
	stored := a.Clone()
	stored.ID = s.nextAttackID
	stored.CreatedAt = time.Now().UTC()
	s.attacks = append(s.attacks, stored)
	return stored.Clone()
}

// InsertThreat stores a derived threat record, assigning id and timestamp.
func (s *MemoryStore) InsertThreat(t *core.Threat) *core.Threat {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextThreatID++
	stored := t.Clone()
	stored.ID = s.nextThreatID
	stored.DetectedAt = time.Now().UTC()
	if stored.Status == "" {
		stored.Status = core.ThreatStatusActive
	}
	s.threats = append(s.threats, stored)
	return stored.Clone()
}

// InsertAlert stores an alert, assigning id and timestamp. Alerts are
// created unread.
func (s *MemoryStore) InsertAlert(a *core.Alert) *core.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAlertID++
	stored := a.Clone()
	stored.ID = s.nextAlertID
	stored.IsRead = false
	stored.CreatedAt = time.Now().UTC()
	s.alerts = append(s.alerts, stored)
	return stored.Clone()
}

// GetAlert returns a copy of the alert with the given id, or
// core.ErrNotFound.
func (s *MemoryStore) GetAlert(id int64) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("alert %d: %w", id, core.ErrNotFound)
}

// GetThreat returns a copy of the threat with the given id, or
// core.ErrNotFound.
func (s *MemoryStore) GetThreat(id int64) (*core.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.threats {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("threat %d: %w", id, core.ErrNotFound)
}

// GetAttack returns a copy of the attack with the given id, or
// core.ErrNotFound.
func (s *MemoryStore) GetAttack(id int64) (*core.HoneypotAttack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.attacks {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("attack %d: %w", id, core.ErrNotFound)
}

// ListAlerts returns alerts newest first (creation time desc, id desc
// tiebreak). limit <= 0 means no limit. An empty store yields an empty
// slice, never an error.
func (s *MemoryStore) ListAlerts(limit, offset int, unreadOnly bool) []*core.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Alert, 0)
	skipped := 0
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if unreadOnly && a.IsRead {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, a.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ListThreats returns threats newest first.
func (s *MemoryStore) ListThreats(limit, offset int) []*core.Threat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Threat, 0)
	skipped := 0
	for i := len(s.threats) - 1; i >= 0; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, s.threats[i].Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ListAttacks returns honeypot attacks newest first, optionally filtered
// by service ("" matches all).
func (s *MemoryStore) ListAttacks(limit, offset int, service core.HoneypotService) []*core.HoneypotAttack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.HoneypotAttack, 0)
	skipped := 0
	for i := len(s.attacks) - 1; i >= 0; i-- {
		a := s.attacks[i]
		if service != "" && a.Service != service {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, a.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ListPhishing returns phishing analyses newest first.
func (s *MemoryStore) ListPhishing(limit, offset int) []*core.PhishingAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.PhishingAnalysis, 0)
	skipped := 0
	for i := len(s.phishing) - 1; i >= 0; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, s.phishing[i].Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ListDeepfakes returns deepfake analyses newest first.
func (s *MemoryStore) ListDeepfakes(limit, offset int) []*core.DeepfakeAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.DeepfakeAnalysis, 0)
	skipped := 0
	for i := len(s.deepfakes) - 1; i >= 0; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, s.deepfakes[i].Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// MarkAlertRead flips an alert's IsRead flag to true. Idempotent: marking
// an already-read alert succeeds without change. Returns core.ErrNotFound
// for an unknown id.
func (s *MemoryStore) MarkAlertRead(id int64) (*core.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			a.IsRead = true
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("alert %d: %w", id, core.ErrNotFound)
}

// MarkAllAlertsRead marks every unread alert read and returns how many
// were newly marked.
func (s *MemoryStore) MarkAllAlertsRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, a := range s.alerts {
		if !a.IsRead {
			a.IsRead = true
			marked++
		}
	}
	return marked
}

// Stats returns a snapshot of the SystemStats singleton. The error is part
// of the read contract (periodic publishers skip a tick on failure) even
// though the in-memory store itself cannot fail.
func (s *MemoryStore) Stats() (core.SystemStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

// IncrementStats applies one read-modify-write delta to the stats
// singleton. The whole update happens under the write lock so concurrent
// increments never lose updates. A delta that would drive any counter
// negative is rejected with core.ErrInternalInconsistency and leaves the
// stats untouched.
func (s *MemoryStore) IncrementStats(delta core.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.stats
	next.ActiveThreats += delta.ActiveThreats
	next.PhishingBlocked += delta.PhishingBlocked
	next.DeepfakesDetected += delta.DeepfakesDetected
	next.HoneypotHits += delta.HoneypotHits

	if next.ActiveThreats < 0 || next.PhishingBlocked < 0 ||
		next.DeepfakesDetected < 0 || next.HoneypotHits < 0 {
		return fmt.Errorf("stats counter would go negative: %w", core.ErrInternalInconsistency)
	}

	next.UpdatedAt = time.Now().UTC()
	s.stats = next
	return nil
}

// AlertCounts summarizes the alert set for dashboard badges.
func (s *MemoryStore) AlertCounts() core.AlertCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := core.AlertCounts{
		BySeverity: make(map[string]int64),
		ByCategory: make(map[string]int64),
	}
	for _, a := range s.alerts {
		counts.Total++
		if !a.IsRead {
			counts.Unread++
		}
		counts.BySeverity[a.Severity]++
		counts.ByCategory[a.Category.String()]++
	}
	return counts
}

// HoneypotStats aggregates logged attacks per service with top source IPs
// and attack types.
func (s *MemoryStore) HoneypotStats() core.HoneypotStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := core.HoneypotStats{
		ByService:  make(map[string]int64),
		BySeverity: make(map[string]int64),
	}
	ipCounts := make(map[string]int64)
	typeCounts := make(map[string]int64)

	for _, a := range s.attacks {
		stats.TotalAttacks++
		stats.ByService[a.Service.String()]++
		stats.BySeverity[a.Severity]++
		ipCounts[a.SourceIP]++
		typeCounts[a.AttackType]++
	}

	stats.TopSourceIPs = topCounted(ipCounts, topValuesLimit)
	stats.TopAttackTypes = topCounted(typeCounts, topValuesLimit)
	return stats
}

// topCounted returns up to limit values ordered by count desc, value asc
// for deterministic output under tests.
func topCounted(counts map[string]int64, limit int) []core.CountedValue {
	out := make([]core.CountedValue, 0, len(counts))
	for v, c := range counts {
		out = append(out, core.CountedValue{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
