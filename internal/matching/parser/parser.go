// Package parser turns wire lines (SPEC_FULL.md §6) into command.Command
// values, rejecting structurally invalid lines before they ever reach the
// Engine (§4.8). The comma-split style is grounded on adonese-hft's
// line-oriented CSV-like grammar, generalized to this spec's richer
// New/Amend/Cancel/Match/Query vocabulary.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lattice-trading/matchcore/internal/matching/command"
	"github.com/lattice-trading/matchcore/internal/matching/types"
)

// ParseLine parses one input line into a Command. The returned error, if
// any, is always an InvalidOrderDetails-class problem: the line did not
// conform to the grammar or one of its fields failed validation.
func ParseLine(line string) (command.Command, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	if len(fields) == 0 || fields[0] == "" {
		return command.Command{}, fmt.Errorf("empty command line")
	}

	tag := fields[0]
	switch tag {
	case "N", "A":
		return parseNewOrAmend(tag, fields)
	case "X":
		return parseCancel(fields)
	case "M":
		return parseMatchOrQuery(command.ActionMatch, fields)
	case "Q":
		return parseMatchOrQuery(command.ActionQuery, fields)
	default:
		return command.Command{}, fmt.Errorf("unknown command tag %q", tag)
	}
}

func parseNewOrAmend(tag string, fields []string) (command.Command, error) {
	// N,<order_id>,<timestamp>,<symbol>,<order_type>,<side>,<price>,<quantity>
	if len(fields) != 8 {
		return command.Command{}, fmt.Errorf("%s: expected 8 fields, got %d", tag, len(fields))
	}

	id, err := parseOrderID(fields[1])
	if err != nil {
		return command.Command{}, err
	}
	ts, err := parseTimestamp(fields[2])
	if err != nil {
		return command.Command{}, err
	}
	symbol := fields[3]
	ot, err := types.ParseOrderType(fields[4])
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", tag, err)
	}
	side, err := types.ParseSide(fields[5])
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", tag, err)
	}
	price, err := types.ParsePrice(fields[6])
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", tag, err)
	}
	qty, err := parseQuantity(fields[7])
	if err != nil {
		return command.Command{}, err
	}

	action := command.ActionNew
	if tag == "A" {
		action = command.ActionAmend
	}

	c := command.Command{
		Action:    action,
		OrderID:   id,
		Timestamp: ts,
		Symbol:    symbol,
		Side:      side,
		OrderType: ot,
		Price:     price,
		Quantity:  qty,
	}
	if err := c.Validate(); err != nil {
		return command.Command{}, err
	}
	return c, nil
}

func parseCancel(fields []string) (command.Command, error) {
	// X,<order_id>,<timestamp>
	if len(fields) != 3 {
		return command.Command{}, fmt.Errorf("X: expected 3 fields, got %d", len(fields))
	}
	id, err := parseOrderID(fields[1])
	if err != nil {
		return command.Command{}, err
	}
	ts, err := parseTimestamp(fields[2])
	if err != nil {
		return command.Command{}, err
	}
	c := command.Command{Action: command.ActionCancel, OrderID: id, Timestamp: ts}
	if err := c.Validate(); err != nil {
		return command.Command{}, err
	}
	return c, nil
}

func parseMatchOrQuery(action command.Action, fields []string) (command.Command, error) {
	// M,<timestamp> | M,<timestamp>,<symbol> | Q,<timestamp> | Q,<timestamp>,<symbol>
	if len(fields) != 2 && len(fields) != 3 {
		return command.Command{}, fmt.Errorf("%s: expected 2 or 3 fields, got %d", action, len(fields))
	}
	ts, err := parseTimestamp(fields[1])
	if err != nil {
		return command.Command{}, err
	}

	c := command.Command{Action: action, Timestamp: ts, Format: command.FormatGlobal}
	if len(fields) == 3 {
		c.Format = command.FormatSymbol
		c.Symbol = fields[2]
	}
	if err := c.Validate(); err != nil {
		return command.Command{}, err
	}
	return c, nil
}

func parseOrderID(s string) (types.OrderID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order id %q: %w", s, err)
	}
	return types.OrderID(v), nil
}

func parseTimestamp(s string) (types.Timestamp, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return types.Timestamp(v), nil
}

func parseQuantity(s string) (types.Quantity, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return types.Quantity(v), nil
}
