package risk

import (
	"encoding/json"
	"fmt"
)

// Level is the severity of a finding. Levels are totally ordered:
// Safe < Caution < Danger.
type Level int

const (
	Safe Level = iota
	Caution
	Danger
)

func (l Level) String() string {
	switch l {
	case Safe:
		return "safe"
	case Caution:
		return "caution"
	case Danger:
		return "danger"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Max returns whichever level is more severe.
func (l Level) Max(other Level) Level {
	if other > l {
		return other
	}
	return l
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "safe":
		*l = Safe
	case "caution":
		*l = Caution
	case "danger":
		*l = Danger
	default:
		return fmt.Errorf("unknown risk level: %q", s)
	}
	return nil
}
