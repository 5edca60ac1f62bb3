package domain

import "fmt"

// Resolution marks what happened to a single change during user-choice
// resolution. It is unset while a conflict is merely detected.
type Resolution string

const (
	ResolutionAccepted Resolution = "accepted"
	ResolutionRejected Resolution = "rejected"
)

// ConflictChange is one field-level divergence between the incoming cart
// state and the canonical snapshot. Field is a dotted path such as
// "items.42.quantity", "totals.tax" or "metadata.couponCode".
type ConflictChange struct {
	Field      string      `bson:"field" json:"field"`
	OldValue   interface{} `bson:"old_value" json:"old_value"`
	NewValue   interface{} `bson:"new_value" json:"new_value"`
	Resolution Resolution  `bson:"resolution,omitempty" json:"resolution,omitempty"`
}

// Strategy selects how conflicting cart states are reconciled. It is a
// closed enum so a new strategy forces every switch to be revisited.
type Strategy int

const (
	StrategyLatestWins Strategy = iota
	StrategyMerge
	StrategyUserChoice
)

func (s Strategy) String() string {
	switch s {
	case StrategyLatestWins:
		return "latest-wins"
	case StrategyMerge:
		return "merge"
	case StrategyUserChoice:
		return "user-choice"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "latest-wins":
		return StrategyLatestWins, nil
	case "merge":
		return StrategyMerge, nil
	case "user-choice":
		return StrategyUserChoice, nil
	default:
		return 0, fmt.Errorf("unknown resolution strategy %q", s)
	}
}

// MarshalJSON / UnmarshalJSON keep the wire form human-readable while the
// in-memory form stays a closed enum.
func (s Strategy) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Strategy) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("strategy must be a JSON string, got %s", string(b))
	}
	parsed, err := ParseStrategy(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
