package risk

import (
	"strings"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
	"github.com/cloudflare/ahocorasick"
)

var dangerousExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".ps1": true, ".vbs": true,
	".msi": true, ".jar": true, ".scr": true, ".lnk": true, ".hta": true,
	".pif": true, ".com": true, ".reg": true, ".wsf": true, ".cpl": true,
	".msc": true, ".msp": true, ".gadget": true, ".application": true,
}

var scriptExtensions = map[string]bool{
	".js": true, ".jse": true, ".vbe": true, ".wsh": true, ".wsc": true,
	".sh": true, ".bash": true, ".zsh": true, ".fish": true, ".py": true,
	".rb": true, ".pl": true, ".php": true,
}

var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".rtf": true, ".odt": true,
	".csv": true,
}

var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".mp3": true, ".mp4": true, ".wav": true, ".avi": true,
	".mov": true, ".mkv": true,
}

var archiveExtensions = map[string]bool{
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
}

var mediaDescriptions = map[string]string{
	".jpg": "photo or image", ".jpeg": "photo or image", ".png": "photo or image",
	".gif": "photo or image", ".bmp": "photo or image", ".webp": "photo or image",
	".mp3": "music or audio file", ".wav": "music or audio file",
	".mp4": "video file", ".avi": "video file", ".mov": "video file",
	".mkv": "video file",
}

// Order matters: only the first matching keyword is ever reported.
var suspiciousKeywords = []string{
	"invoice", "payment", "urgent", "update", "tracking",
	"details", "confirmation", "receipt", "refund", "verify",
	"account", "suspended", "click", "free", "prize", "winner",
	"bank", "password", "credential", "login",
}

var scamURLKeywords = []string{
	"free", "winner", "prize", "claim", "urgent", "verify",
	"suspended", "confirm", "unusual", "limited", "act-now",
	"click-here", "login-required", "update-required",
}

var trustedDomains = map[string]bool{
	"google.com": true, "youtube.com": true, "microsoft.com": true,
	"apple.com": true, "amazon.com": true, "bbc.com": true, "bbc.co.uk": true,
	"nhs.uk": true, "gov.uk": true, "usa.gov": true, "irs.gov": true,
	"medicare.gov": true, "wikipedia.org": true, "facebook.com": true,
	"gmail.com": true, "outlook.com": true, "yahoo.com": true,
}

// Characters scammers substitute for letters when faking a brand name.
var homoglyphs = map[rune]rune{
	'0': 'o', '1': 'l', '!': 'l', '|': 'l',
	'5': 's', '8': 'b', '@': 'a', '$': 's',
	'3': 'e',
}

type lookalikeTarget struct {
	brand  string
	domain string
}

// Checked in order; the first brand within edit distance wins.
var lookalikeTargets = []lookalikeTarget{
	{"google", "google.com"},
	{"youtube", "youtube.com"},
	{"microsoft", "microsoft.com"},
	{"apple", "apple.com"},
	{"amazon", "amazon.com"},
	{"facebook", "facebook.com"},
	{"instagram", "instagram.com"},
	{"paypal", "paypal.com"},
	{"netflix", "netflix.com"},
	{"ebay", "ebay.com"},
	{"yahoo", "yahoo.com"},
	{"outlook", "outlook.com"},
	{"gmail", "gmail.com"},
	{"wikipedia", "wikipedia.org"},
}

var (
	keywordMatcher = ahocorasick.NewStringMatcher(suspiciousKeywords)
	scamMatcher    = ahocorasick.NewStringMatcher(scamURLKeywords)
	trustedFilter  *xorfilter.Xor8
)

func init() {
	keys := make([]uint64, 0, len(trustedDomains))
	for domain := range trustedDomains {
		keys = append(keys, xxhash.Sum64String(domain))
	}
	filter, err := xorfilter.Populate(keys)
	if err != nil {
		// Duplicate keys are the only failure mode and the set is static.
		panic(err)
	}
	trustedFilter = filter
}

// firstSuspiciousKeyword returns the first keyword (in list order) that
// appears in the lowercased filename, or "" when none do.
func firstSuspiciousKeyword(nameLower string) string {
	hits := keywordMatcher.MatchThreadSafe([]byte(nameLower))
	if len(hits) == 0 {
		return ""
	}
	present := make(map[int]bool, len(hits))
	for _, idx := range hits {
		present[idx] = true
	}
	for i, kw := range suspiciousKeywords {
		if present[i] {
			return kw
		}
	}
	return ""
}

func hasScamKeyword(urlLower string) bool {
	return len(scamMatcher.MatchThreadSafe([]byte(urlLower))) > 0
}

// isTrustedDomain reports whether base equals a trusted domain or is a
// subdomain of one. The xor filter rejects the common case cheaply; the map
// confirms candidates so filter false positives can never mark a stranger
// trusted.
func isTrustedDomain(base string) bool {
	for d := base; d != ""; {
		if trustedFilter.Contains(xxhash.Sum64String(d)) && trustedDomains[d] {
			return true
		}
		i := strings.Index(d, ".")
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	return false
}

func normalizeHomoglyphs(label string) string {
	return strings.Map(func(r rune) rune {
		if mapped, ok := homoglyphs[r]; ok {
			return mapped
		}
		return r
	}, label)
}
