package ml

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Anomaly strings attached to positive verdicts, picked pseudo-randomly.
var anomalyCatalog = []string{
	"inconsistent blink rate",
	"lip-sync drift in frames 120-180",
	"unnatural skin texture smoothing",
	"lighting mismatch across face boundary",
	"audio spectral artifacts near 8kHz",
	"irregular head pose interpolation",
	"compression fingerprint mismatch",
	"missing specular highlights in eyes",
}

var videoExtensions = []string{".mp4", ".mov", ".avi", ".webm", ".mkv"}

// RandomDeepfakeDetector fabricates detection verdicts. There is no model
// behind it: the verdict is drawn from a seeded RNG, biased by file type so
// demo dashboards show plausible distributions. Safe for concurrent use.
type RandomDeepfakeDetector struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.SugaredLogger
}

// NewRandomDeepfakeDetector creates a detector with the given seed. Using
// a fixed seed makes a whole run reproducible, which the replay CLI relies
// on.
func NewRandomDeepfakeDetector(seed int64, logger *zap.SugaredLogger) *RandomDeepfakeDetector {
	return &RandomDeepfakeDetector{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Analyze fabricates a verdict for the file.
func (d *RandomDeepfakeDetector) Analyze(ctx context.Context, meta FileMeta) (*DeepfakeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("deepfake analysis canceled: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Video files "detect" more often than images in the demo data.
	threshold := 0.30
	if isVideoFile(meta.FileName) {
		threshold = 0.45
	}

	result := &DeepfakeResult{
		ProcessingTimeMs: 400 + d.rng.Int63n(2200),
	}

	if d.rng.Float64() < threshold {
		result.IsDeepfake = true
		// Positive verdicts land in 0.70-1.00 so some clear the 0.80
		// escalation threshold and some do not.
		result.Confidence = 0.70 + d.rng.Float64()*0.30
		count := 2 + d.rng.Intn(3)
		perm := d.rng.Perm(len(anomalyCatalog))
		for i := 0; i < count; i++ {
			result.Anomalies = append(result.Anomalies, anomalyCatalog[perm[i]])
		}
	} else {
		result.Confidence = 0.05 + d.rng.Float64()*0.40
		result.Anomalies = []string{}
	}

	if d.logger != nil {
		d.logger.Debugw("Deepfake verdict fabricated",
			"file", meta.FileName,
			"is_deepfake", result.IsDeepfake,
			"confidence", result.Confidence)
	}
	return result, nil
}

func isVideoFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
