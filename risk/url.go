package risk

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// AnalyzeURL classifies a user-entered web address. The raw input is kept as
// the result subject; analysis runs on a normalized form (trimmed, https://
// prepended when no scheme was given). Implausible input short-circuits to a
// single "couldn't understand this" Caution finding.
func AnalyzeURL(ctx context.Context, raw string, opts URLOptions) ScanResult {
	res := ScanResult{
		Kind:      KindURL,
		Subject:   raw,
		Overall:   Safe,
		ScannedAt: time.Now(),
	}

	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		res.append(msgInvalidURL.finding(raw))
		return res
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil || !plausibleWebURL(normalized, u) {
		res.append(msgInvalidURL.finding(raw))
		return res
	}

	host := strings.ToLower(u.Hostname())
	baseDomain := strings.TrimPrefix(host, "www.")
	fullLower := strings.ToLower(normalized)

	// 1. Optional reputation lookup on the exact URL.
	if opts.Reputation != nil {
		if flagged, ok := opts.Reputation.Flagged(ctx, normalized); ok && flagged {
			res.append(msgURLFlagged.finding(normalized))
		}
	}

	// 2. Lookalike domain: a near-miss of a well-known brand after homoglyph
	// normalization.
	if real := lookalikeDomain(baseDomain); real != "" {
		res.append(msgLookalikeDomain.finding(normalized, real))
	}

	// 3. Raw IP address instead of a name.
	if net.ParseIP(host) != nil {
		res.append(msgIPAddressURL.finding(normalized))
	}

	// 4. Trust, keywords, HTTPS, and shape.
	trusted := isTrustedDomain(baseDomain)
	scamKW := hasScamKeyword(fullLower)
	isHTTPS := u.Scheme == "https"
	longOrOdd := len(normalized) > 100 ||
		strings.Count(normalized, ".") > 4 ||
		strings.Contains(normalized, "@")

	switch {
	case trusted && isHTTPS && !scamKW:
		res.append(msgTrustedDomain.finding(normalized))
	case scamKW && !trusted:
		res.append(msgScamKeywords.finding(normalized))
	default:
		if !isHTTPS {
			res.append(msgNonHTTPS.finding(normalized))
		}
		if longOrOdd {
			res.append(msgLongOrOddURL.finding(normalized))
		}
		if len(res.Findings) == 0 {
			res.append(msgSafeURL.finding(normalized))
		}
	}

	return res
}

// lookalikeDomain returns the real domain base looks like an imitation of,
// or "" when it matches nothing (or is itself trusted or an exact brand).
// The exact-brand skip applies to the raw label only: a label that becomes
// the brand after homoglyph substitution (amaz0n, paypa1) is the strongest
// spoof there is, not a legitimate use of the name.
func lookalikeDomain(base string) string {
	if isTrustedDomain(base) {
		return ""
	}
	label, _, _ := strings.Cut(base, ".")
	label = strings.ToLower(label)
	normalized := normalizeHomoglyphs(label)

	for _, target := range lookalikeTargets {
		if label == target.brand {
			return ""
		}
		if normalized == target.brand {
			return target.domain
		}
		dist := levenshtein(normalized, target.brand)
		if dist > 0 && dist <= 2 && utf8.RuneCountInString(normalized) >= 4 {
			return target.domain
		}
	}
	return ""
}

func plausibleWebURL(full string, u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	if strings.IndexFunc(full, unicode.IsSpace) >= 0 {
		return false
	}
	return validHostname(u.Hostname())
}

// validHostname applies the same cheap checks a person could: an IP literal,
// or dot-separated labels of letters, digits, and inner hyphens.
func validHostname(hostname string) bool {
	if hostname == "" || len(hostname) > 253 {
		return false
	}
	if strings.IndexFunc(hostname, unicode.IsSpace) >= 0 {
		return false
	}
	if net.ParseIP(hostname) != nil {
		return true
	}
	labels := strings.Split(strings.TrimSuffix(hostname, "."), ".")
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
				return false
			}
		}
	}
	return true
}
