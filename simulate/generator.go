// Package simulate fabricates honeypot traffic for demo deployments:
// background generators that emit plausible attacks on jittered timers,
// and scripted scenario replay from YAML files.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sentinel/core"
	"sentinel/correlate"

	"go.uber.org/zap"
)

// AttackSubmitter is the pipeline entry point the engine feeds.
type AttackSubmitter interface {
	SubmitAttack(ctx context.Context, attack *core.HoneypotAttack) (*correlate.AttackOutcome, error)
}

// weightedChoice pairs a value with its selection weight.
type weightedChoice struct {
	value  string
	weight int
}

// serviceProfile describes the traffic shape of one simulated service.
type serviceProfile struct {
	service     core.HoneypotService
	port        int
	minInterval time.Duration
	maxInterval time.Duration
	attackTypes []weightedChoice
	payloads    map[string][]string
}

// severityWeights skews generated attacks toward low severities so
// escalations stay rare enough to stand out on the dashboard.
var severityWeights = []weightedChoice{
	{core.SeverityLow, 50},
	{core.SeverityMedium, 30},
	{core.SeverityHigh, 15},
	{core.SeverityCritical, 5},
}

// Engine runs one generator goroutine per service profile.
type Engine struct {
	submitter AttackSubmitter
	profiles  []serviceProfile
	logger    *zap.SugaredLogger

	randMu sync.Mutex
	rand   *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Intervals holds per-service timing bounds for the generators.
type Intervals struct {
	SSHMin, SSHMax   time.Duration
	HTTPMin, HTTPMax time.Duration
	FTPMin, FTPMax   time.Duration
}

// NewEngine creates a generator engine. seed 0 uses a time-based seed.
func NewEngine(submitter AttackSubmitter, intervals Intervals, seed int64, logger *zap.SugaredLogger) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		submitter: submitter,
		profiles:  buildProfiles(intervals),
		logger:    logger,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

func buildProfiles(iv Intervals) []serviceProfile {
	return []serviceProfile{
		{
			service:     core.ServiceSSH,
			port:        22,
			minInterval: iv.SSHMin,
			maxInterval: iv.SSHMax,
			attackTypes: []weightedChoice{
				{"brute_force", 55},
				{"credential_stuffing", 25},
				{"port_scan", 20},
			},
			payloads: map[string][]string{
				"brute_force": {
					"Failed password for root from port 54212 ssh2",
					"Failed password for admin from port 41830 ssh2",
					"Failed password for invalid user oracle ssh2",
				},
				"credential_stuffing": {
					"Accepted none for ubuntu (auth canceled)",
					"Failed publickey for git ssh2: RSA SHA256",
				},
				"port_scan": {
					"Connection reset by peer during banner exchange",
				},
			},
		},
		{
			service:     core.ServiceHTTP,
			port:        80,
			minInterval: iv.HTTPMin,
			maxInterval: iv.HTTPMax,
			attackTypes: []weightedChoice{
				{"sql_injection", 35},
				{"xss_attempt", 25},
				{"path_traversal", 25},
				{"scanner_probe", 15},
			},
			payloads: map[string][]string{
				"sql_injection": {
					"GET /products?id=1' OR '1'='1 HTTP/1.1",
					"POST /login username=admin'-- HTTP/1.1",
				},
				"xss_attempt": {
					"GET /search?q=<script>document.location</script> HTTP/1.1",
				},
				"path_traversal": {
					"GET /../../../../etc/passwd HTTP/1.1",
					"GET /static/..%2f..%2f..%2fwindows/win.ini HTTP/1.1",
				},
				"scanner_probe": {
					"GET /.env HTTP/1.1",
					"GET /wp-login.php HTTP/1.1",
				},
			},
		},
		{
			service:     core.ServiceFTP,
			port:        21,
			minInterval: iv.FTPMin,
			maxInterval: iv.FTPMax,
			attackTypes: []weightedChoice{
				{"anonymous_login", 50},
				{"brute_force", 35},
				{"bounce_attack", 15},
			},
			payloads: map[string][]string{
				"anonymous_login": {
					"USER anonymous / PASS mozilla@example.com",
				},
				"brute_force": {
					"USER admin / PASS admin123",
					"USER ftp / PASS ftp",
				},
				"bounce_attack": {
					"PORT 203,0,113,5,0,21",
				},
			},
		},
	}
}

// Start launches the per-service loops. Idempotent while running.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for _, profile := range e.profiles {
		e.wg.Add(1)
		go e.runService(runCtx, profile)
	}
	e.logger.Infow("Attack simulation started", "services", len(e.profiles))
}

// Stop halts all loops and waits for them. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.wg.Wait()
	e.logger.Info("Attack simulation stopped")
}

func (e *Engine) runService(ctx context.Context, profile serviceProfile) {
	defer e.wg.Done()

	timer := time.NewTimer(e.jitter(profile.minInterval, profile.maxInterval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			attack := e.fabricate(profile)
			if _, err := e.submitter.SubmitAttack(ctx, attack); err != nil {
				e.logger.Warnw("Simulated attack rejected",
					"service", profile.service,
					"error", err)
			}
			timer.Reset(e.jitter(profile.minInterval, profile.maxInterval))
		}
	}
}

// fabricate builds one plausible attack for the given profile.
func (e *Engine) fabricate(profile serviceProfile) *core.HoneypotAttack {
	attackType := e.pickWeighted(profile.attackTypes)
	payloads := profile.payloads[attackType]

	e.randMu.Lock()
	payload := ""
	if len(payloads) > 0 {
		payload = payloads[e.rand.Intn(len(payloads))]
	}
	e.randMu.Unlock()

	return &core.HoneypotAttack{
		Service:    profile.service,
		SourceIP:   e.randomPublicIP(),
		AttackType: attackType,
		Severity:   e.pickWeighted(severityWeights),
		Port:       profile.port,
		Payload:    payload,
	}
}

func (e *Engine) pickWeighted(choices []weightedChoice) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}

	e.randMu.Lock()
	n := e.rand.Intn(total)
	e.randMu.Unlock()

	for _, c := range choices {
		n -= c.weight
		if n < 0 {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

// randomPublicIP generates an address outside private, loopback and
// link-local ranges so geolocation always has something to resolve.
func (e *Engine) randomPublicIP() string {
	e.randMu.Lock()
	defer e.randMu.Unlock()

	for {
		a := e.rand.Intn(223) + 1
		b := e.rand.Intn(256)
		c := e.rand.Intn(256)
		d := e.rand.Intn(254) + 1

		switch {
		case a == 10, a == 127:
			continue
		case a == 172 && b >= 16 && b <= 31:
			continue
		case a == 192 && b == 168:
			continue
		case a == 169 && b == 254:
			continue
		case a == 100 && b >= 64 && b <= 127:
			continue
		}
		return fmt.Sprintf("%d.%d.%d.%d", a, b, c, d)
	}
}

func (e *Engine) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return min + time.Duration(e.rand.Int63n(int64(max-min)))
}
