// Package command defines the Command value the parser produces and the
// Engine consumes (SPEC_FULL.md §6), plus the structural validation rules
// enforced at the parser boundary via github.com/go-playground/validator/v10
// struct tags — the matching core itself never re-validates shape.
package command

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// Action selects which Engine operation a Command drives.
type Action uint8

const (
	ActionNew Action = iota
	ActionAmend
	ActionCancel
	ActionMatch
	ActionQuery
)

func (a Action) String() string {
	switch a {
	case ActionNew:
		return "New"
	case ActionAmend:
		return "Amend"
	case ActionCancel:
		return "Cancel"
	case ActionMatch:
		return "Match"
	case ActionQuery:
		return "Query"
	default:
		return "Unknown"
	}
}

// Format disambiguates the sub-form of a Match or Query command (§6); it
// is meaningless for New/Amend/Cancel.
type Format uint8

const (
	// FormatGlobal applies to every known symbol, in sorted order.
	FormatGlobal Format = iota
	// FormatSymbol restricts the operation to a single named symbol.
	FormatSymbol
)

// Command is the structured line the parser hands the Engine. Validation
// tags enforce the shape rules that hold regardless of Action; the rules
// that depend on which Action fired (an order id is required for New but
// meaningless for a global Match) are checked in Validate, since struct
// tags alone can't express "required only when Action == ActionNew".
type Command struct {
	Format Format
	Action Action

	OrderID   types.OrderID
	Timestamp types.Timestamp
	Symbol    string `validate:"omitempty,alpha,uppercase,max=4"`

	Side      types.Side
	OrderType types.OrderType
	Price     types.Price `validate:"min=0"`
	Quantity  types.Quantity
}

var validate = validator.New()

// Validate runs the Action-independent struct-tag rules plus the
// Action-dependent presence rules from §6's line grammar. It catches
// shape problems (malformed symbol, negative price, a New with no
// quantity) but never the stateful monotonic-timestamp rule (I1), which
// belongs to the Engine alone.
func (c Command) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Action {
	case ActionNew, ActionAmend:
		if c.OrderID == 0 {
			return fmt.Errorf("%s requires a non-zero order id", c.Action)
		}
		if c.Symbol == "" {
			return fmt.Errorf("%s requires a symbol", c.Action)
		}
		if c.Quantity == 0 {
			return fmt.Errorf("%s requires a positive quantity", c.Action)
		}
	case ActionCancel:
		if c.OrderID == 0 {
			return fmt.Errorf("cancel requires a non-zero order id")
		}
	case ActionMatch, ActionQuery:
		if c.Format == FormatSymbol && c.Symbol == "" {
			return fmt.Errorf("%s,symbol form requires a symbol", c.Action)
		}
	}
	return nil
}
