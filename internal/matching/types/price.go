package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Price is a non-negative price scaled by 100 so that two fractional
// digits compare and equal exactly — SPEC_FULL.md §3 rules out a floating
// point representation for this reason. Price(10453) renders as "104.53".
type Price int64

// Quantity is the outstanding (or filled) size of an order. Zero means
// fully filled.
type Quantity uint64

// Timestamp is the monotonic clock carried by the command stream.
type Timestamp uint64

// OrderID uniquely identifies an order for the lifetime of the engine.
type OrderID uint64

const priceScale = 100

// ParsePrice parses a decimal string with up to two fractional digits
// ("104.53", "9", "0.5") into a scaled Price. Negative prices are rejected.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		return 0, fmt.Errorf("negative price %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(frac) > 2 {
		return 0, fmt.Errorf("price %q has more than two fractional digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	wholeVal, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	fracVal, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}

	return Price(wholeVal*priceScale + fracVal), nil
}

// String renders the price with exactly two fractional digits, per
// SPEC_FULL.md §6.
func (p Price) String() string {
	whole := int64(p) / priceScale
	frac := int64(p) % priceScale
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d", whole, frac)
}
