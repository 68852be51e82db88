package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"downguard/logger"

	"golang.org/x/time/rate"
)

// SafeBrowsing checks a single URL against Google's Safe Browsing v4
// threatMatches endpoint.
type SafeBrowsing struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewSafeBrowsing(apiKey string) *SafeBrowsing {
	return &SafeBrowsing{
		apiKey:  apiKey,
		baseURL: "https://safebrowsing.googleapis.com/v4/threatMatches:find",
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

var sbThreatTypes = []string{
	"MALWARE", "SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
}

type sbRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string            `json:"threatTypes"`
		PlatformTypes    []string            `json:"platformTypes"`
		ThreatEntryTypes []string            `json:"threatEntryTypes"`
		ThreatEntries    []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

type sbResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Flagged reports whether the service lists the exact URL as a threat. ok is
// false whenever the service gave no usable answer.
func (s *SafeBrowsing) Flagged(ctx context.Context, url string) (bool, bool) {
	if s.apiKey == "" || url == "" {
		return false, false
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return false, false
	}

	var payload sbRequest
	payload.Client.ClientID = "downguard"
	payload.Client.ClientVersion = "1.0"
	payload.ThreatInfo.ThreatTypes = sbThreatTypes
	payload.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	payload.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	payload.ThreatInfo.ThreatEntries = []map[string]string{{"url": url}}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"?key="+s.apiKey, bytes.NewReader(body))
	if err != nil {
		return false, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Debugf("URL reputation lookup failed for %s: %v", url, err)
		return false, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Debugf("URL reputation lookup for %s: %s", url, resp.Status)
		return false, false
	}

	var parsed sbResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		logger.Debugf("URL reputation response unreadable: %v", err)
		return false, false
	}
	return len(parsed.Matches) > 0, true
}

// WithBaseURL overrides the service endpoint for tests.
func (s *SafeBrowsing) WithBaseURL(url string) *SafeBrowsing {
	s.baseURL = url
	return s
}
