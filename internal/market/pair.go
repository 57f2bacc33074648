package market

import "fmt"

// PairID identifies a token pair independent of direction. The two token
// indices are stored in ascending order so that (A,B) and (B,A) produce
// the same value and collide as map keys.
type PairID struct {
	Lower  uint32
	Higher uint32
}

// NewPairID builds a canonical PairID from two token indices in any order.
func NewPairID(a, b uint32) PairID {
	if a > b {
		a, b = b, a
	}
	return PairID{Lower: a, Higher: b}
}

// Contains reports whether the pair involves the given token index.
func (p PairID) Contains(token uint32) bool {
	return p.Lower == token || p.Higher == token
}

// Other returns the counterpart token index. The caller must ensure the
// pair contains token.
func (p PairID) Other(token uint32) uint32 {
	if p.Lower == token {
		return p.Higher
	}
	return p.Lower
}

func (p PairID) String() string {
	return fmt.Sprintf("%d-%d", p.Lower, p.Higher)
}

// ParsePairID parses the String form back into a canonical PairID.
func ParsePairID(s string) (PairID, error) {
	var a, b uint32
	if _, err := fmt.Sscanf(s, "%d-%d", &a, &b); err != nil {
		return PairID{}, fmt.Errorf("market: invalid pair id %q: %w", s, err)
	}
	return NewPairID(a, b), nil
}
