package risk

import "testing"

func TestLevenshteinBasics(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"amazon", "amazon", 0},
		{"amazon", "amaz0n", 1},
		{"amazon", "arnazon", 2},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Fatalf("levenshtein(%q, %q) = %d, expected %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLevenshteinSymmetry(t *testing.T) {
	pairs := [][2]string{{"paypal", "paypa1"}, {"google", "goggle"}, {"short", "longerstring"}}
	for _, p := range pairs {
		if levenshtein(p[0], p[1]) != levenshtein(p[1], p[0]) {
			t.Fatalf("distance not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestLevenshteinCountsRunesNotBytes(t *testing.T) {
	// One code point substituted, even though the byte lengths differ.
	if got := levenshtein("café", "cafe"); got != 1 {
		t.Fatalf("expected rune distance 1, got %d", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 bytes"},
		{512, "512 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range cases {
		if got := FormatFileSize(tc.bytes); got != tc.want {
			t.Fatalf("FormatFileSize(%d) = %q, expected %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFirstSuspiciousKeywordOrder(t *testing.T) {
	// "invoice" precedes "payment" in the list regardless of position in the
	// name.
	if got := firstSuspiciousKeyword("payment_invoice.exe"); got != "invoice" {
		t.Fatalf("expected 'invoice', got %q", got)
	}
	if got := firstSuspiciousKeyword("holiday_photos.zip"); got != "" {
		t.Fatalf("expected no keyword, got %q", got)
	}
}
