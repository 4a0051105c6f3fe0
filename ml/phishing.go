package ml

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"sentinel/core"

	"go.uber.org/zap"
)

// Scoring weights for the phishing heuristics. The scorer is intentionally
// simple: keyword groups plus suspicious-link analysis, clamped to 0-100.
const (
	weightPerKeywordGroup  = 18
	weightPerSuspiciousURL = 15
	maxScore               = 100
)

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s<>"')]+`)
	ipHostPattern    = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	suspiciousTLDs   = []string{".tk", ".ml", ".ga", ".cf", ".gq", ".zip", ".mov", ".xyz", ".top"}
	shortenerDomains = []string{"bit.ly", "tinyurl.com", "goo.gl", "t.co", "is.gd", "ow.ly"}
)

// keywordGroup is one scored category of phishing language. A group
// contributes its weight once no matter how many of its phrases match.
type keywordGroup struct {
	indicator string
	phrases   []string
}

var keywordGroups = []keywordGroup{
	{
		indicator: "urgency language",
		phrases:   []string{"urgent", "immediately", "act now", "right away", "within 24 hours", "expires today", "final notice"},
	},
	{
		indicator: "credential lure",
		phrases:   []string{"verify your account", "confirm your identity", "update your password", "login to your account", "re-enter your", "security check"},
	},
	{
		indicator: "financial bait",
		phrases:   []string{"wire transfer", "bank account", "unclaimed funds", "payment pending", "invoice attached", "refund"},
	},
	{
		indicator: "threat or pressure",
		phrases:   []string{"account suspended", "account locked", "unauthorized access", "unusual activity", "will be closed", "legal action"},
	},
	{
		indicator: "generic greeting",
		phrases:   []string{"dear customer", "dear user", "dear account holder", "valued customer"},
	},
}

// HeuristicPhishingClassifier scores email bodies with keyword and URL
// heuristics. Deterministic for a given input, safe for concurrent use
// (all state is immutable after construction).
type HeuristicPhishingClassifier struct {
	logger *zap.SugaredLogger
}

// NewHeuristicPhishingClassifier creates the demo phishing scorer.
func NewHeuristicPhishingClassifier(logger *zap.SugaredLogger) *HeuristicPhishingClassifier {
	return &HeuristicPhishingClassifier{logger: logger}
}

// Analyze scores the content. Empty content is the caller's problem; the
// correlator rejects it before calling here.
func (c *HeuristicPhishingClassifier) Analyze(ctx context.Context, content string) (*PhishingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("phishing analysis canceled: %w", err)
	}

	lower := strings.ToLower(content)
	result := &PhishingResult{Indicators: []string{}}
	score := 0

	for _, group := range keywordGroups {
		for _, phrase := range group.phrases {
			if strings.Contains(lower, phrase) {
				score += weightPerKeywordGroup
				result.Indicators = append(result.Indicators, group.indicator)
				break
			}
		}
	}

	links := urlPattern.FindAllString(content, -1)
	for _, link := range links {
		if c.isSuspiciousURL(link) {
			result.SuspiciousLinkCount++
		}
	}
	if result.SuspiciousLinkCount > 0 {
		score += result.SuspiciousLinkCount * weightPerSuspiciousURL
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("%d suspicious link(s)", result.SuspiciousLinkCount))
	}

	if score > maxScore {
		score = maxScore
	}
	result.Score = score

	// Confidence grows with corroborating indicators, capped below 100
	// because a keyword scorer is never certain.
	confidence := 50 + len(result.Indicators)*8
	if confidence > 95 {
		confidence = 95
	}
	result.Confidence = confidence

	if c.logger != nil {
		c.logger.Debugw("Phishing content scored",
			"score", result.Score,
			"confidence", result.Confidence,
			"indicators", len(result.Indicators),
			"suspicious_links", result.SuspiciousLinkCount)
	}
	return result, nil
}

// isSuspiciousURL flags IP-literal hosts, known shorteners, throwaway
// TLDs, and credentials embedded in the URL.
func (c *HeuristicPhishingClassifier) isSuspiciousURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return true
	}
	if ipHostPattern.MatchString(host) {
		return true
	}
	if parsed.User != nil {
		return true
	}
	for _, d := range shortenerDomains {
		if host == d {
			return true
		}
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

// SeverityHint is a convenience for simulators and CLI output; the real
// escalation decision belongs to core.EvaluatePhishing.
func SeverityHint(score int) string {
	switch {
	case score >= core.PhishingCriticalScore:
		return core.SeverityCritical
	case score >= core.PhishingHighScore:
		return core.SeverityHigh
	case score >= 40:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}
