// Package correlate implements the event correlation pipeline: every raw
// detection event is stored, run through the severity/threshold policy,
// conditionally escalated into threat/alert records with a stats update,
// and fanned out to live subscribers. The side-effect order is a contract:
// store, then policy, then derived records and stats, then external
// notification, then broadcast. Subscribers that re-query stats right
// after a broadcast always see consistent data.
package correlate

import (
	"context"
	"fmt"
	"strings"

	"sentinel/core"
	"sentinel/geo"
	"sentinel/metrics"
	"sentinel/ml"
	"sentinel/storage"

	"go.uber.org/zap"
)

// Sink receives broadcast messages produced by the correlator. Publish
// must be non-blocking (enqueue-then-return); the WebSocket hub is the
// production implementation.
type Sink interface {
	Publish(messageType string, payload interface{})
}

// AttackNotifier is the email collaborator boundary. Best-effort by
// contract: the bool reports delivery, errors never cross it.
type AttackNotifier interface {
	SendAttackAlert(attack *core.HoneypotAttack, alert *core.Alert) bool
}

// Correlator owns the store mutation path for all inbound detection
// events. Safe for concurrent use; the store serializes mutations.
type Correlator struct {
	store      *storage.MemoryStore
	classifier ml.PhishingClassifier
	resolver   geo.Resolver
	notifier   AttackNotifier
	sinks      []Sink
	logger     *zap.SugaredLogger
}

// Config collects the correlator's collaborators. Classifier and store are
// required; resolver and notifier are optional and degrade gracefully.
type Config struct {
	Store      *storage.MemoryStore
	Classifier ml.PhishingClassifier
	Resolver   geo.Resolver
	Notifier   AttackNotifier
	Logger     *zap.SugaredLogger
}

// New creates a correlator.
func New(cfg Config) (*Correlator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("correlator requires a store")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("correlator requires a phishing classifier")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Correlator{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		resolver:   cfg.Resolver,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
	}, nil
}

// AddSink registers a broadcast sink. Not safe to call after submissions
// have started; wire sinks during bootstrap.
func (c *Correlator) AddSink(sink Sink) {
	c.sinks = append(c.sinks, sink)
}

// publish fans a message out to every registered sink.
func (c *Correlator) publish(messageType string, payload interface{}) {
	for _, sink := range c.sinks {
		sink.Publish(messageType, payload)
	}
	metrics.BroadcastsSent.WithLabelValues(messageType).Inc()
}

// PhishingOutcome is the result of one phishing submission.
type PhishingOutcome struct {
	Analysis  *core.PhishingAnalysis `json:"analysis"`
	Escalated bool                   `json:"escalated"`
}

// SubmitPhishing scores content through the classifier, stores the
// analysis, and escalates per policy. Empty content is rejected before any
// store mutation; a classifier failure aborts the submission with no
// partial writes.
func (c *Correlator) SubmitPhishing(ctx context.Context, content string) (*PhishingOutcome, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("phishing content is empty: %w", core.ErrInvalidInput)
	}

	result, err := c.classifier.Analyze(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("phishing classification failed: %w", err)
	}

	analysis := c.store.InsertPhishing(&core.PhishingAnalysis{
		Content:             content,
		Score:               result.Score,
		Confidence:          result.Confidence,
		SuspiciousLinkCount: result.SuspiciousLinkCount,
		Indicators:          result.Indicators,
	})
	metrics.EventsIngested.WithLabelValues("phishing").Inc()

	decision := core.EvaluatePhishing(analysis.Score)
	if !decision.Escalate {
		return &PhishingOutcome{Analysis: analysis}, nil
	}

	threat := c.store.InsertThreat(&core.Threat{
		Type:        "phishing",
		Severity:    decision.Severity,
		Source:      "email-analyzer",
		Description: fmt.Sprintf("Phishing email detected with score %d", analysis.Score),
		Metadata: map[string]interface{}{
			"analysis_id":           analysis.ID,
			"score":                 analysis.Score,
			"suspicious_link_count": analysis.SuspiciousLinkCount,
		},
	})

	alert := c.store.InsertAlert(&core.Alert{
		Title:       "Phishing email blocked",
		Description: fmt.Sprintf("Phishing content scored %d/100 (%s)", analysis.Score, decision.Severity),
		Severity:    decision.Severity,
		Category:    core.CategoryEmail,
		Metadata: map[string]interface{}{
			"analysis_id": analysis.ID,
			"threat_id":   threat.ID,
		},
	})

	if err := c.store.IncrementStats(core.StatsDelta{PhishingBlocked: 1, ActiveThreats: 1}); err != nil {
		// Counters only ever move up here; a failure means invariants are
		// already broken.
		return nil, fmt.Errorf("stats update failed: %w", err)
	}
	metrics.AlertsGenerated.WithLabelValues(alert.Severity).Inc()

	c.logger.Infow("Phishing analysis escalated",
		"analysis_id", analysis.ID,
		"threat_id", threat.ID,
		"alert_id", alert.ID,
		"score", analysis.Score,
		"severity", decision.Severity)

	c.publish(core.MessageNewAlert, alert)

	return &PhishingOutcome{Analysis: analysis, Escalated: true}, nil
}

// DeepfakeOutcome is the result of one deepfake submission.
type DeepfakeOutcome struct {
	Analysis  *core.DeepfakeAnalysis `json:"analysis"`
	Escalated bool                   `json:"escalated"`
}

// SubmitDeepfake stores a detector verdict and escalates per policy. The
// verdict is produced by the caller's detector collaborator; the
// correlator only applies thresholds.
func (c *Correlator) SubmitDeepfake(ctx context.Context, meta ml.FileMeta, result *ml.DeepfakeResult) (*DeepfakeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(meta.FileName) == "" {
		return nil, fmt.Errorf("deepfake file name is empty: %w", core.ErrInvalidInput)
	}
	if result == nil {
		return nil, fmt.Errorf("deepfake result is missing: %w", core.ErrInvalidInput)
	}

	analysis := c.store.InsertDeepfake(&core.DeepfakeAnalysis{
		FileName:         meta.FileName,
		FileType:         meta.FileType,
		FileSizeBytes:    meta.FileSizeBytes,
		IsDeepfake:       result.IsDeepfake,
		Confidence:       result.Confidence,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Anomalies:        result.Anomalies,
	})
	metrics.EventsIngested.WithLabelValues("deepfake").Inc()

	decision := core.EvaluateDeepfake(analysis.IsDeepfake, analysis.Confidence)
	if !decision.Escalate {
		return &DeepfakeOutcome{Analysis: analysis}, nil
	}

	threat := c.store.InsertThreat(&core.Threat{
		Type:        "deepfake",
		Severity:    decision.Severity,
		Source:      "media-analyzer",
		Description: fmt.Sprintf("Deepfake detected in %s (confidence %.2f)", analysis.FileName, analysis.Confidence),
		Metadata: map[string]interface{}{
			"analysis_id": analysis.ID,
			"file_name":   analysis.FileName,
			"confidence":  analysis.Confidence,
		},
	})

	alert := c.store.InsertAlert(&core.Alert{
		Title:       "Deepfake media detected",
		Description: fmt.Sprintf("%s flagged as deepfake with confidence %.2f", analysis.FileName, analysis.Confidence),
		Severity:    decision.Severity,
		Category:    core.CategoryMedia,
		Metadata: map[string]interface{}{
			"analysis_id": analysis.ID,
			"threat_id":   threat.ID,
		},
	})

	if err := c.store.IncrementStats(core.StatsDelta{DeepfakesDetected: 1, ActiveThreats: 1}); err != nil {
		return nil, fmt.Errorf("stats update failed: %w", err)
	}
	metrics.AlertsGenerated.WithLabelValues(alert.Severity).Inc()

	c.logger.Infow("Deepfake analysis escalated",
		"analysis_id", analysis.ID,
		"threat_id", threat.ID,
		"alert_id", alert.ID,
		"confidence", analysis.Confidence,
		"severity", decision.Severity)

	c.publish(core.MessageNewAlert, alert)

	return &DeepfakeOutcome{Analysis: analysis, Escalated: true}, nil
}

// AttackOutcome is the result of one honeypot attack submission.
type AttackOutcome struct {
	Attack       *core.HoneypotAttack `json:"attack"`
	AlertCreated bool                 `json:"alert_created"`
}

// SubmitAttack stores a honeypot attack unconditionally and escalates
// SSH high/critical attacks into alerts. Geolocation runs before the
// locked insert and is best-effort; email notification is fire-and-forget.
// The raw attack is always broadcast, after the stats update.
func (c *Correlator) SubmitAttack(ctx context.Context, attack *core.HoneypotAttack) (*AttackOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if attack == nil {
		return nil, fmt.Errorf("attack is missing: %w", core.ErrInvalidInput)
	}
	if !attack.Service.IsValid() {
		return nil, fmt.Errorf("unknown honeypot service %q: %w", attack.Service, core.ErrInvalidInput)
	}
	if !core.IsValidSeverity(attack.Severity) {
		return nil, fmt.Errorf("unknown severity %q: %w", attack.Severity, core.ErrInvalidInput)
	}
	if strings.TrimSpace(attack.SourceIP) == "" {
		return nil, fmt.Errorf("attack source ip is empty: %w", core.ErrInvalidInput)
	}

	// Geolocate outside the store lock; a failed lookup just leaves the
	// location empty.
	if attack.Location == nil && c.resolver != nil {
		loc, err := c.resolver.Locate(ctx, attack.SourceIP)
		if err != nil {
			c.logger.Debugw("Geolocation lookup failed",
				"source_ip", attack.SourceIP, "error", err)
		} else {
			attack.Location = loc
		}
	}

	stored := c.store.InsertAttack(attack)
	metrics.EventsIngested.WithLabelValues("honeypot").Inc()

	if err := c.store.IncrementStats(core.StatsDelta{HoneypotHits: 1}); err != nil {
		return nil, fmt.Errorf("stats update failed: %w", err)
	}

	decision := core.EvaluateHoneypot(stored.Service, stored.Severity)

	var alert *core.Alert
	if decision.Escalate {
		alert = c.store.InsertAlert(&core.Alert{
			Title:       fmt.Sprintf("SSH %s attack from %s", stored.AttackType, stored.SourceIP),
			Description: fmt.Sprintf("Honeypot logged a %s severity %s attack against %s:%d", stored.Severity, stored.AttackType, stored.Service, stored.Port),
			Severity:    decision.Severity,
			Category:    core.CategoryHoneypot,
			Metadata: map[string]interface{}{
				"attack_id":   stored.ID,
				"service":     stored.Service.String(),
				"source_ip":   stored.SourceIP,
				"attack_type": stored.AttackType,
			},
		})
		metrics.AlertsGenerated.WithLabelValues(alert.Severity).Inc()

		c.logger.Infow("Honeypot attack escalated",
			"attack_id", stored.ID,
			"alert_id", alert.ID,
			"source_ip", stored.SourceIP,
			"severity", stored.Severity)

		// Email is best-effort and must never block or abort the
		// correlation path.
		if c.notifier != nil {
			attackCopy := stored.Clone()
			alertCopy := alert.Clone()
			go func() {
				if !c.notifier.SendAttackAlert(attackCopy, alertCopy) {
					c.logger.Warnw("Attack alert email not delivered",
						"alert_id", alertCopy.ID)
				}
			}()
		}
	}

	c.publish(core.MessageHoneypotAttack, stored)
	if alert != nil {
		c.publish(core.MessageNewAlert, alert)
	}

	return &AttackOutcome{Attack: stored, AlertCreated: alert != nil}, nil
}
