package core

// Escalation thresholds. These are exact numeric contracts: a phishing
// score of 90 is critical, 70-89 is high, 69 never escalates; a deepfake
// escalates at confidence 0.80 and turns critical at 0.95.
const (
	PhishingCriticalScore = 90
	PhishingHighScore     = 70

	DeepfakeEscalateConfidence = 0.80
	DeepfakeCriticalConfidence = 0.95
)

// Decision is the outcome of applying the severity/threshold policy to a
// raw detection result.
type Decision struct {
	Escalate bool
	Severity string
}

// EvaluatePhishing maps a phishing score to an escalation decision. The
// analysis record itself is always stored regardless of the outcome.
func EvaluatePhishing(score int) Decision {
	switch {
	case score >= PhishingCriticalScore:
		return Decision{Escalate: true, Severity: SeverityCritical}
	case score >= PhishingHighScore:
		return Decision{Escalate: true, Severity: SeverityHigh}
	default:
		return Decision{}
	}
}

// EvaluateDeepfake maps a detector verdict to an escalation decision.
func EvaluateDeepfake(isDeepfake bool, confidence float64) Decision {
	if !isDeepfake || confidence < DeepfakeEscalateConfidence {
		return Decision{}
	}
	severity := SeverityHigh
	if confidence >= DeepfakeCriticalConfidence {
		severity = SeverityCritical
	}
	return Decision{Escalate: true, Severity: severity}
}

// EvaluateHoneypot decides whether an attack is alert-worthy. Only SSH
// attacks of high or critical severity escalate; everything else is logged
// without producing an alert.
func EvaluateHoneypot(service HoneypotService, severity string) Decision {
	if service != ServiceSSH {
		return Decision{}
	}
	if severity != SeverityHigh && severity != SeverityCritical {
		return Decision{}
	}
	return Decision{Escalate: true, Severity: severity}
}
