// Package cmd provides command-line interface commands for Sentinel.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"sentinel/core"
	"sentinel/correlate"
	"sentinel/geo"
	"sentinel/ml"
	"sentinel/simulate"
	"sentinel/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Flags for the replay command
var (
	noColor bool
	quiet   bool
	timeout time.Duration
)

// NewReplayCmd creates the 'replay' command. It runs a scenario file
// through an in-process pipeline and prints a summary, without needing
// a running server.
func NewReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scripted attack scenario",
		Long: `Replay a YAML attack scenario through the correlation pipeline.

Each attack in the file is submitted in order, honoring per-attack delays,
and the run ends with a summary of stored attacks, escalations and alerts.`,
		Args: cobra.ExactArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0])
		},
	}

	replayCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	replayCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress per-attack output")
	replayCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the replay after this duration")

	return replayCmd
}

func runReplay(path string) error {
	scenario, err := simulate.LoadScenario(path)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		return err
	}

	logger := zap.NewNop().Sugar()
	store := storage.NewMemoryStore(logger)

	resolver, err := geo.NewCachedResolver(geo.NewStaticResolver(logger), 256, logger)
	if err != nil {
		return fmt.Errorf("initializing geo resolver: %w", err)
	}

	correlator, err := correlate.New(correlate.Config{
		Store:      store,
		Classifier: ml.NewHeuristicPhishingClassifier(logger),
		Resolver:   resolver,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	headerColor.Printf("Replaying scenario: %s\n", scenario.Name)
	if scenario.Description != "" && !quiet {
		infoColor.Printf("  %s\n", scenario.Description)
	}
	fmt.Printf("  %d scripted attacks\n\n", len(scenario.Attacks))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := scenario.Replay(ctx, &verboseSubmitter{inner: correlator})
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Replay aborted: %v\n", err)
		return err
	}

	printSummary(store, result)
	return nil
}

// verboseSubmitter wraps the correlator to print per-attack progress.
type verboseSubmitter struct {
	inner simulate.AttackSubmitter
}

func (v *verboseSubmitter) SubmitAttack(ctx context.Context, attack *core.HoneypotAttack) (*correlate.AttackOutcome, error) {
	outcome, err := v.inner.SubmitAttack(ctx, attack)
	if quiet {
		return outcome, err
	}

	switch {
	case err != nil:
		errorColor.Printf("  ✗ %-5s %-20s %s (%v)\n", attack.Service, attack.AttackType, attack.SourceIP, err)
	case outcome.AlertCreated:
		warningColor.Printf("  ! %-5s %-20s %s [%s] escalated\n",
			attack.Service, attack.AttackType, attack.SourceIP, attack.Severity)
	default:
		fmt.Printf("  · %-5s %-20s %s [%s]\n",
			attack.Service, attack.AttackType, attack.SourceIP, attack.Severity)
	}
	return outcome, err
}

func printSummary(store *storage.MemoryStore, result *simulate.ReplayResult) {
	stats, _ := store.Stats()
	counts := store.AlertCounts()

	fmt.Println()
	headerColor.Println("Replay summary")
	fmt.Printf("  Duration:     %s\n", result.Duration.Round(time.Millisecond))
	successColor.Printf("  Submitted:    %d\n", result.Submitted)
	if result.Failed > 0 {
		errorColor.Printf("  Failed:       %d\n", result.Failed)
	}
	warningColor.Printf("  Escalated:    %d\n", result.Escalated)
	fmt.Printf("  Honeypot hits: %d\n", stats.HoneypotHits)
	fmt.Printf("  Alerts:        %d", counts.Total)

	if counts.Total > 0 {
		fmt.Print(" (")
		first := true
		for _, severity := range []string{core.SeverityCritical, core.SeverityHigh, core.SeverityMedium, core.SeverityLow} {
			if n := counts.BySeverity[severity]; n > 0 {
				if !first {
					fmt.Print(", ")
				}
				fmt.Printf("%d %s", n, severity)
				first = false
			}
		}
		fmt.Print(")")
	}
	fmt.Println()
}
