// Package ml provides the demo classifier collaborators: a heuristic
// phishing scorer and a pseudo-random deepfake detector. Neither is a real
// model; the correlation core only depends on the interfaces defined here
// and tests substitute deterministic stubs.
package ml

import (
	"context"
)

// PhishingResult is the raw output of scoring one email body.
type PhishingResult struct {
	Score               int      `json:"score"`      // 0-100
	Confidence          int      `json:"confidence"` // 0-100
	SuspiciousLinkCount int      `json:"suspicious_link_count"`
	Indicators          []string `json:"indicators"`
}

// DeepfakeResult is the raw verdict for one analyzed media file.
type DeepfakeResult struct {
	IsDeepfake       bool     `json:"is_deepfake"`
	Confidence       float64  `json:"confidence"` // 0-1
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Anomalies        []string `json:"anomalies"`
}

// FileMeta describes the media file handed to the deepfake detector.
type FileMeta struct {
	FileName      string `json:"file_name"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// PhishingClassifier scores email content. Implementations must be safe
// for concurrent use.
type PhishingClassifier interface {
	Analyze(ctx context.Context, content string) (*PhishingResult, error)
}

// DeepfakeDetector produces a verdict for a media file. Implementations
// must be safe for concurrent use.
type DeepfakeDetector interface {
	Analyze(ctx context.Context, meta FileMeta) (*DeepfakeResult, error)
}
