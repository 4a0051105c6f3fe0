package simulate

import (
	"context"
	"fmt"
	"os"
	"time"

	"sentinel/core"

	"gopkg.in/yaml.v3"
)

// ScenarioAttack is one scripted attack in a replay file.
type ScenarioAttack struct {
	Service    string `yaml:"service"`
	SourceIP   string `yaml:"source_ip"`
	AttackType string `yaml:"attack_type"`
	Severity   string `yaml:"severity"`
	Port       int    `yaml:"port"`
	Payload    string `yaml:"payload"`
	// DelayMs is the pause before this attack is submitted.
	DelayMs int `yaml:"delay_ms"`
}

// Scenario is a scripted sequence of attacks loaded from YAML.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Attacks     []ScenarioAttack `yaml:"attacks"`
}

// ReplayResult summarizes one scenario run.
type ReplayResult struct {
	Submitted int
	Escalated int
	Failed    int
	Duration  time.Duration
}

// LoadScenario parses and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks every attack entry before replay starts, so a bad
// file fails up front instead of mid-run.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: scenario name is required", core.ErrInvalidInput)
	}
	if len(s.Attacks) == 0 {
		return fmt.Errorf("%w: scenario %q has no attacks", core.ErrInvalidInput, s.Name)
	}
	for i, attack := range s.Attacks {
		if !core.HoneypotService(attack.Service).IsValid() {
			return fmt.Errorf("%w: attack %d has unknown service %q", core.ErrInvalidInput, i, attack.Service)
		}
		if !core.IsValidSeverity(attack.Severity) {
			return fmt.Errorf("%w: attack %d has unknown severity %q", core.ErrInvalidInput, i, attack.Severity)
		}
		if attack.SourceIP == "" {
			return fmt.Errorf("%w: attack %d is missing source_ip", core.ErrInvalidInput, i)
		}
		if attack.AttackType == "" {
			return fmt.Errorf("%w: attack %d is missing attack_type", core.ErrInvalidInput, i)
		}
		if attack.DelayMs < 0 {
			return fmt.Errorf("%w: attack %d has negative delay", core.ErrInvalidInput, i)
		}
	}
	return nil
}

// Replay submits every attack in order, honoring per-attack delays.
// Individual submission failures are counted, not fatal; cancellation
// stops the run early.
func (s *Scenario) Replay(ctx context.Context, submitter AttackSubmitter) (*ReplayResult, error) {
	start := time.Now()
	result := &ReplayResult{}

	for _, scripted := range s.Attacks {
		if scripted.DelayMs > 0 {
			select {
			case <-ctx.Done():
				result.Duration = time.Since(start)
				return result, ctx.Err()
			case <-time.After(time.Duration(scripted.DelayMs) * time.Millisecond):
			}
		}

		outcome, err := submitter.SubmitAttack(ctx, &core.HoneypotAttack{
			Service:    core.HoneypotService(scripted.Service),
			SourceIP:   scripted.SourceIP,
			AttackType: scripted.AttackType,
			Severity:   scripted.Severity,
			Port:       scripted.Port,
			Payload:    scripted.Payload,
		})
		if err != nil {
			result.Failed++
			continue
		}
		result.Submitted++
		if outcome.AlertCreated {
			result.Escalated++
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
