// Package reputation implements the optional external lookup capabilities
// the risk engine accepts. Every client treats transport errors, non-success
// statuses, and malformed payloads as "no signal": classification must never
// fail, block, or escalate because a reputation service is unreachable.
package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"downguard/logger"

	"golang.org/x/time/rate"
)

const defaultTimeout = 8 * time.Second

// VirusTotal looks up files by SHA-256 digest. The free API tier allows four
// requests per minute, which the limiter enforces client-side.
type VirusTotal struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewVirusTotal(apiKey string) *VirusTotal {
	return &VirusTotal{
		apiKey:  apiKey,
		baseURL: "https://www.virustotal.com/api/v3",
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(15*time.Second), 4),
	}
}

type vtFileReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Detections returns the number of engines that flagged the hash. ok is
// false whenever the service gave no usable answer.
func (v *VirusTotal) Detections(ctx context.Context, sha256hex string) (int, bool) {
	if v.apiKey == "" || sha256hex == "" {
		return 0, false
	}
	if err := v.limiter.Wait(ctx); err != nil {
		return 0, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/files/"+sha256hex, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("x-apikey", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		logger.Debugf("File reputation lookup failed for %.12s: %v", sha256hex, err)
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Debugf("File reputation lookup for %.12s: %s", sha256hex, resp.Status)
		return 0, false
	}

	var report vtFileReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		logger.Debugf("File reputation response unreadable: %v", err)
		return 0, false
	}
	stats := report.Data.Attributes.LastAnalysisStats
	return stats.Malicious + stats.Suspicious, true
}

// WithBaseURL overrides the service endpoint. Tests point it at a local
// httptest server.
func (v *VirusTotal) WithBaseURL(url string) *VirusTotal {
	v.baseURL = url
	return v
}
