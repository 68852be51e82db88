package risk

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"
)

func TestLevelOrderingAndString(t *testing.T) {
	if !(Safe < Caution && Caution < Danger) {
		t.Fatal("risk levels out of order")
	}
	cases := map[Level]string{Safe: "safe", Caution: "caution", Danger: "danger"}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Fatalf("level %d: expected %q, got %q", level, want, got)
		}
	}
}

func TestLevelMax(t *testing.T) {
	if Safe.Max(Danger) != Danger || Danger.Max(Safe) != Danger {
		t.Fatal("Max is not commutative on safe/danger")
	}
	if Caution.Max(Caution) != Caution {
		t.Fatal("Max of equal levels changed the level")
	}
}

func TestLevelJSONRoundTrip(t *testing.T) {
	for _, level := range []Level{Safe, Caution, Danger} {
		raw, err := json.Marshal(level)
		if err != nil {
			t.Fatal(err)
		}
		var back Level
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatal(err)
		}
		if back != level {
			t.Fatalf("round trip changed %v to %v", level, back)
		}
	}

	var bad Level
	if err := json.Unmarshal([]byte(`"catastrophic"`), &bad); err == nil {
		t.Fatal("unknown level name accepted")
	}
}

func TestOverallIsAlwaysMaxOfFindings(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	levels := []Level{Safe, Caution, Danger}

	for trial := 0; trial < 200; trial++ {
		res := ScanResult{Kind: KindFile, Overall: Safe}
		max := Safe
		for i := 0; i < 1+rng.Intn(6); i++ {
			level := levels[rng.Intn(len(levels))]
			res.append(Finding{Risk: level, Title: "t", Detail: "d"})
			if level > max {
				max = level
			}
		}
		if res.Overall != max {
			t.Fatalf("overall %v, expected max %v of %v", res.Overall, max, res.Findings)
		}
	}
}
