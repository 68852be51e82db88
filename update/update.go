// Package update asks the release feed for the newest published version so
// the startup banner can nudge users toward security fixes. Callers ignore
// failures; the check must never block a scan.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const releaseURL = "https://api.github.com/repos/downguard/downguard/releases/latest"

var httpClient = &http.Client{Timeout: 5 * time.Second}

type latestRelease struct {
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
}

// CheckForUpdate reports the latest published version, its release notes,
// and whether it differs from the running version.
func CheckForUpdate(current string) (string, string, bool, error) {
	return checkForUpdateURL(current, releaseURL)
}

func checkForUpdateURL(current, url string) (string, string, bool, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", false, fmt.Errorf("release check got %s", resp.Status)
	}

	var release latestRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", "", false, err
	}
	latest := strings.TrimPrefix(release.TagName, "v")
	if latest == current {
		return latest, "", false, nil
	}
	return latest, release.Body, true, nil
}
