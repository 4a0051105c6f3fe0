package core

import (
	"time"
)

// Severity levels used across analyses, threats, and alerts.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityRank maps a severity string to its ordering for filtering and
// comparison. Unknown severities rank lowest.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// IsValidSeverity reports whether s is one of the known severity levels.
func IsValidSeverity(s string) bool {
	return SeverityRank(s) > 0
}

// HoneypotService identifies which simulated honeypot service an attack hit.
type HoneypotService string

const (
	ServiceSSH  HoneypotService = "ssh"
	ServiceHTTP HoneypotService = "http"
	ServiceFTP  HoneypotService = "ftp"
)

// String returns the string representation
func (s HoneypotService) String() string {
	return string(s)
}

// IsValid checks if the service is one of the simulated honeypot services
func (s HoneypotService) IsValid() bool {
	switch s {
	case ServiceSSH, ServiceHTTP, ServiceFTP:
		return true
	default:
		return false
	}
}

// ThreatStatus represents the lifecycle state of a threat record
type ThreatStatus string

const (
	// ThreatStatusActive indicates a threat that hasn't been actioned
	ThreatStatusActive ThreatStatus = "active"
	// ThreatStatusResolved indicates a threat resolved by an operator
	ThreatStatusResolved ThreatStatus = "resolved"
	// ThreatStatusDismissed indicates a threat dismissed as a false positive
	ThreatStatusDismissed ThreatStatus = "dismissed"
)

// String returns the string representation
func (s ThreatStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s ThreatStatus) IsValid() bool {
	switch s {
	case ThreatStatusActive, ThreatStatusResolved, ThreatStatusDismissed:
		return true
	default:
		return false
	}
}

// AlertCategory groups alerts by the subsystem that produced them
type AlertCategory string

const (
	// CategoryEmail covers alerts derived from phishing analyses
	CategoryEmail AlertCategory = "email"
	// CategoryMedia covers alerts derived from deepfake analyses
	CategoryMedia AlertCategory = "media"
	// CategoryHoneypot covers alerts derived from honeypot attacks
	CategoryHoneypot AlertCategory = "honeypot"
	// CategorySystem covers alerts raised by the platform itself
	CategorySystem AlertCategory = "system"
)

// String returns the string representation
func (c AlertCategory) String() string {
	return string(c)
}

// Broadcast message types pushed to live subscribers.
const (
	MessageNewAlert       = "new_alert"
	MessageHoneypotAttack = "honeypot_attack"
	MessageStatsUpdate    = "stats_update"
)

// Location holds a resolved geolocation for an attack source IP.
// The resolver is best-effort; a nil *Location on an attack record means
// lookup failed or was skipped.
type Location struct {
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// PhishingAnalysis is the stored result of scoring one email body.
// The record is always stored regardless of score; only the correlator
// decides whether it escalates into a threat.
type PhishingAnalysis struct {
	ID                  int64     `json:"id"`
	Content             string    `json:"content"`
	Score               int       `json:"score"`      // 0-100
	Confidence          int       `json:"confidence"` // 0-100
	SuspiciousLinkCount int       `json:"suspicious_link_count"`
	Indicators          []string  `json:"indicators"`
	CreatedAt           time.Time `json:"created_at"`
}

// DeepfakeAnalysis is the stored verdict for one analyzed media file.
type DeepfakeAnalysis struct {
	ID               int64     `json:"id"`
	FileName         string    `json:"file_name"`
	FileType         string    `json:"file_type"`
	FileSizeBytes    int64     `json:"file_size_bytes"`
	IsDeepfake       bool      `json:"is_deepfake"`
	Confidence       float64   `json:"confidence"` // 0-1
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Anomalies        []string  `json:"anomalies"`
	CreatedAt        time.Time `json:"created_at"`
}

// HoneypotAttack is one logged hit against a simulated service.
type HoneypotAttack struct {
	ID         int64           `json:"id"`
	Service    HoneypotService `json:"service"`
	SourceIP   string          `json:"source_ip"`
	AttackType string          `json:"attack_type"`
	Severity   string          `json:"severity"`
	Port       int             `json:"port"`
	Payload    string          `json:"payload,omitempty"`
	Location   *Location       `json:"location,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Threat is a derived record created when an analysis or attack crosses an
// escalation threshold. Create-then-immutable in this core; status changes
// belong to an operator workflow that is out of scope.
type Threat struct {
	ID          int64                  `json:"id"`
	Type        string                 `json:"type"`
	Severity    string                 `json:"severity"`
	Source      string                 `json:"source"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Status      ThreatStatus           `json:"status"`
	DetectedAt  time.Time              `json:"detected_at"`
}

// Alert is the operator-facing record fanned out to live subscribers.
// IsRead is the only mutable field and only ever flips false to true.
type Alert struct {
	ID          int64                  `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"`
	Category    AlertCategory          `json:"category"`
	IsRead      bool                   `json:"is_read"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// SystemStats is the singleton aggregate kept consistent with the event
// store: HoneypotHits equals the count of attacks ever inserted,
// PhishingBlocked and DeepfakesDetected equal the counts of escalated
// analyses, and ActiveThreats is monotonic-increase-only.
type SystemStats struct {
	ActiveThreats     int64     `json:"active_threats"`
	PhishingBlocked   int64     `json:"phishing_blocked"`
	DeepfakesDetected int64     `json:"deepfakes_detected"`
	HoneypotHits      int64     `json:"honeypot_hits"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StatsDelta describes one read-modify-write against SystemStats. Every
// non-zero field must correspond to an event insertion in the same
// correlation pass.
type StatsDelta struct {
	ActiveThreats     int64
	PhishingBlocked   int64
	DeepfakesDetected int64
	HoneypotHits      int64
}

// AlertCounts summarizes the alert set for dashboard badges.
type AlertCounts struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByCategory map[string]int64 `json:"by_category"`
}

// HoneypotStats summarizes logged attacks per service for the dashboard.
type HoneypotStats struct {
	TotalAttacks   int64            `json:"total_attacks"`
	ByService      map[string]int64 `json:"by_service"`
	BySeverity     map[string]int64 `json:"by_severity"`
	TopSourceIPs   []CountedValue   `json:"top_source_ips"`
	TopAttackTypes []CountedValue   `json:"top_attack_types"`
}

// CountedValue is a value with an occurrence count, ordered by count desc.
type CountedValue struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// CopyMetadata returns a shallow copy of an alert/threat metadata map so
// stored records never share mutable state with callers.
func CopyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CopyStrings returns a copy of a string slice, preserving nil.
func CopyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Clone returns a deep copy of the analysis
func (p *PhishingAnalysis) Clone() *PhishingAnalysis {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Indicators = CopyStrings(p.Indicators)
	return &cp
}

// Clone returns a deep copy of the analysis
func (d *DeepfakeAnalysis) Clone() *DeepfakeAnalysis {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Anomalies = CopyStrings(d.Anomalies)
	return &cp
}

// Clone returns a deep copy of the attack
func (a *HoneypotAttack) Clone() *HoneypotAttack {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Location != nil {
		loc := *a.Location
		cp.Location = &loc
	}
	return &cp
}

// Clone returns a deep copy of the threat
func (t *Threat) Clone() *Threat {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Metadata = CopyMetadata(t.Metadata)
	return &cp
}

// Clone returns a deep copy of the alert
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Metadata = CopyMetadata(a.Metadata)
	return &cp
}
