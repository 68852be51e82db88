package risk

import (
	"context"
	"time"
)

// Kind says whether a result describes a file or a web address.
type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// Finding is one reported observation with its own risk level and
// plain-English explanation. Findings are never mutated once appended.
type Finding struct {
	Risk   Level  `json:"risk"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ScanResult is the record produced by one classification. Findings keep
// detection order; Overall is always the maximum severity among them.
type ScanResult struct {
	Kind      Kind      `json:"type"`
	Subject   string    `json:"subject"`
	Overall   Level     `json:"overall_risk"`
	Findings  []Finding `json:"findings"`
	ScannedAt time.Time `json:"scanned_at"`

	// File results only.
	FileHash  string `json:"file_hash,omitempty"`
	SizeBytes int64  `json:"file_size_bytes,omitempty"`
	SizeHuman string `json:"file_size,omitempty"`
	Extension string `json:"ext,omitempty"`
	FuzzyHash string `json:"fuzzy_hash,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (r *ScanResult) append(f Finding) {
	r.Findings = append(r.Findings, f)
	r.Overall = r.Overall.Max(f.Risk)
}

// FileReputation looks up a file by content digest against an external
// reputation service. ok is false when the service gave no usable answer;
// that is never treated as evidence of danger.
type FileReputation interface {
	Detections(ctx context.Context, sha256hex string) (count int, ok bool)
}

// URLReputation reports whether an external service flags the exact URL.
type URLReputation interface {
	Flagged(ctx context.Context, url string) (flagged bool, ok bool)
}

// FileOptions carries the optional capabilities for AnalyzeFile.
type FileOptions struct {
	Reputation     FileReputation
	HashAlgorithms []string
	FuzzyAlgorithm string
}

// URLOptions carries the optional capabilities for AnalyzeURL.
type URLOptions struct {
	Reputation URLReputation
}
