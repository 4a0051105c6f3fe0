// Package notify implements the best-effort email/webhook collaborator.
// Delivery failures are logged and counted, never propagated to the
// correlation path; a circuit breaker per channel keeps a dead SMTP server
// or webhook endpoint from dragging down submissions.
package notify

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"net/smtp"
	"sync"
	"time"

	"sentinel/core"

	"go.uber.org/zap"
)

// ChannelType represents the type of notification channel
type ChannelType string

const (
	// ChannelEmail delivers over SMTP
	ChannelEmail ChannelType = "email"
	// ChannelWebhook delivers as a JSON POST
	ChannelWebhook ChannelType = "webhook"
)

// httpClientTimeout bounds every webhook attempt
const httpClientTimeout = 10 * time.Second

// ChannelConfig holds configuration for one notification channel
type ChannelConfig struct {
	Enabled bool        `json:"enabled" mapstructure:"enabled"`
	Type    ChannelType `json:"type" mapstructure:"type"`

	// Email configuration
	SMTPHost     string   `json:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort     int      `json:"smtp_port" mapstructure:"smtp_port"`
	SMTPUsername string   `json:"smtp_username" mapstructure:"smtp_username"`
	SMTPPassword string   `json:"smtp_password" mapstructure:"smtp_password"`
	FromAddress  string   `json:"from_address" mapstructure:"from_address"`
	ToAddresses  []string `json:"to_addresses" mapstructure:"to_addresses"`

	// Webhook configuration
	WebhookURL     string            `json:"webhook_url" mapstructure:"webhook_url"`
	WebhookMethod  string            `json:"webhook_method" mapstructure:"webhook_method"`
	WebhookHeaders map[string]string `json:"webhook_headers" mapstructure:"webhook_headers"`

	// MinSeverity filters deliveries: critical, high, medium, low
	MinSeverity string `json:"min_severity" mapstructure:"min_severity"`
}

// Notifier sends attack alerts through all configured channels.
type Notifier struct {
	configs  []ChannelConfig
	logger   *zap.SugaredLogger
	breakers map[string]*core.CircuitBreaker
	cbMu     sync.RWMutex
}

// NewNotifier creates a notifier with the given channel configs.
func NewNotifier(configs []ChannelConfig, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		configs:  configs,
		logger:   logger,
		breakers: make(map[string]*core.CircuitBreaker),
	}
}

// breakerFor returns the circuit breaker for a channel key, creating it on
// first use.
func (n *Notifier) breakerFor(key string) *core.CircuitBreaker {
	n.cbMu.RLock()
	cb, exists := n.breakers[key]
	n.cbMu.RUnlock()
	if exists {
		return cb
	}

	n.cbMu.Lock()
	defer n.cbMu.Unlock()
	if cb, exists := n.breakers[key]; exists {
		return cb
	}
	cb = core.NewCircuitBreaker(core.DefaultCircuitBreakerConfig())
	n.breakers[key] = cb
	n.logger.Infof("Created circuit breaker for notification channel: %s", key)
	return cb
}

// SendAttackAlert pushes an escalated honeypot attack through every enabled
// channel. Always best-effort: the returned bool reports whether at least
// one channel delivered, and no error ever crosses this boundary.
func (n *Notifier) SendAttackAlert(attack *core.HoneypotAttack, alert *core.Alert) bool {
	delivered := false

	for _, config := range n.configs {
		if !config.Enabled {
			continue
		}
		if !n.shouldNotify(alert.Severity, config) {
			continue
		}

		switch config.Type {
		case ChannelEmail:
			key := fmt.Sprintf("email:%s", config.SMTPHost)
			cb := n.breakerFor(key)
			if err := cb.Allow(); err != nil {
				n.logger.Warnf("Circuit breaker open for email notifications to %s: %v", config.SMTPHost, err)
				continue
			}
			if err := n.sendEmail(attack, alert, config); err != nil {
				cb.RecordFailure()
				n.logger.Errorf("Failed to send email notification for alert %d: %v", alert.ID, err)
			} else {
				cb.RecordSuccess()
				delivered = true
			}
		case ChannelWebhook:
			key := fmt.Sprintf("webhook:%s", config.WebhookURL)
			cb := n.breakerFor(key)
			if err := cb.Allow(); err != nil {
				n.logger.Warnf("Circuit breaker open for webhook notifications to %s: %v", config.WebhookURL, err)
				continue
			}
			if err := n.sendWebhook(attack, alert, config); err != nil {
				cb.RecordFailure()
				n.logger.Errorf("Failed to send webhook notification for alert %d: %v", alert.ID, err)
			} else {
				cb.RecordSuccess()
				delivered = true
			}
		}
	}

	return delivered
}

// shouldNotify applies the channel's severity floor.
func (n *Notifier) shouldNotify(severity string, config ChannelConfig) bool {
	if config.MinSeverity == "" {
		return true
	}
	return core.SeverityRank(severity) >= core.SeverityRank(config.MinSeverity)
}

// sendEmail sends the attack alert over SMTP.
func (n *Notifier) sendEmail(attack *core.HoneypotAttack, alert *core.Alert, config ChannelConfig) error {
	if len(config.ToAddresses) == 0 {
		return fmt.Errorf("no recipients specified for email notification")
	}

	subject := fmt.Sprintf("[%s] Honeypot alert: %s on %s", alert.Severity, attack.AttackType, attack.Service)
	body := n.formatEmailBody(attack, alert)

	toHeader := ""
	for i, addr := range config.ToAddresses {
		if i > 0 {
			toHeader += ", "
		}
		toHeader += addr
	}

	message := fmt.Sprintf("From: %s\r\n", config.FromAddress)
	message += fmt.Sprintf("To: %s\r\n", toHeader)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n" + body

	addr := fmt.Sprintf("%s:%d", config.SMTPHost, config.SMTPPort)
	auth := smtp.CRAMMD5Auth(config.SMTPUsername, config.SMTPPassword)
	err := smtp.SendMail(addr, auth, config.FromAddress, config.ToAddresses, []byte(message))
	if err != nil {
		// CRAM-MD5 not offered by all servers; retry with PLAIN over TLS
		auth = smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)
		if err = smtp.SendMail(addr, auth, config.FromAddress, config.ToAddresses, []byte(message)); err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
	}

	n.logger.Infof("Sent email notification for alert %d to %d recipients", alert.ID, len(config.ToAddresses))
	return nil
}

// formatEmailBody renders the attack details as HTML.
func (n *Notifier) formatEmailBody(attack *core.HoneypotAttack, alert *core.Alert) string {
	location := ""
	if attack.Location != nil {
		location = fmt.Sprintf("%s, %s", attack.Location.City, attack.Location.Country)
	}

	templateData := struct {
		Severity   string
		Title      string
		Service    string
		SourceIP   string
		AttackType string
		Port       int
		Location   string
		Timestamp  string
	}{
		Severity:   html.EscapeString(alert.Severity),
		Title:      html.EscapeString(alert.Title),
		Service:    html.EscapeString(attack.Service.String()),
		SourceIP:   html.EscapeString(attack.SourceIP),
		AttackType: html.EscapeString(attack.AttackType),
		Port:       attack.Port,
		Location:   html.EscapeString(location),
		Timestamp:  html.EscapeString(attack.CreatedAt.Format(time.RFC3339)),
	}

	tmpl := `
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .alert { border-left: 4px solid #f44336; padding: 15px; background: #f9f9f9; }
        .alert.critical { border-color: #d32f2f; }
        .alert.high { border-color: #f44336; }
        .field { margin: 10px 0; }
        .label { font-weight: bold; color: #555; }
        .value { color: #333; }
        .code { background: #f5f5f5; padding: 5px; border-radius: 3px; font-family: monospace; }
    </style>
</head>
<body>
    <div class="alert {{.Severity}}">
        <h2>Honeypot Alert: {{.Title}}</h2>
        <div class="field"><span class="label">Severity:</span> <span class="value">{{.Severity}}</span></div>
        <div class="field"><span class="label">Service:</span> <span class="value code">{{.Service}}:{{.Port}}</span></div>
        <div class="field"><span class="label">Source IP:</span> <span class="value code">{{.SourceIP}}</span></div>
        <div class="field"><span class="label">Attack Type:</span> <span class="value">{{.AttackType}}</span></div>
        <div class="field"><span class="label">Location:</span> <span class="value">{{.Location}}</span></div>
        <div class="field"><span class="label">Timestamp:</span> <span class="value">{{.Timestamp}}</span></div>
    </div>
</body>
</html>
`

	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	t.Execute(&buf, templateData)
	return buf.String()
}

// sendWebhook posts the attack alert as JSON.
func (n *Notifier) sendWebhook(attack *core.HoneypotAttack, alert *core.Alert, config ChannelConfig) error {
	payload := map[string]interface{}{
		"alert_id":    alert.ID,
		"title":       alert.Title,
		"severity":    alert.Severity,
		"category":    alert.Category,
		"timestamp":   alert.CreatedAt,
		"attack": map[string]interface{}{
			"id":          attack.ID,
			"service":     attack.Service,
			"source_ip":   attack.SourceIP,
			"attack_type": attack.AttackType,
			"severity":    attack.Severity,
			"port":        attack.Port,
			"location":    attack.Location,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := config.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, config.WebhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sentinel/1.0")
	for key, value := range config.WebhookHeaders {
		req.Header.Set(key, value)
	}

	client := &http.Client{
		Timeout: httpClientTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			n.logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}

	n.logger.Infof("Sent webhook notification for alert %d", alert.ID)
	return nil
}
