// Package quantitative is the thin numeric-constraint counterpart to
// the categorical resolver. Unit conversion for physical quantities is
// explicitly out of scope here, that concern belongs to an external
// library. This package only normalizes the min|max|range axis blocks
// the listing orchestrator hands it into a decimal-precise shape; it
// never guesses at a conversion factor.
package quantitative

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/canonengine/canonengine/internal/logger"
)

// Constraint is the normalized numeric shape the orchestrator stores in
// place of a raw min|max|range block, keyed by axis (e.g. "cost",
// "storage").
type Constraint struct {
	Axis string           `json:"axis"`
	Min  *decimal.Decimal `json:"min,omitempty"`
	Max  *decimal.Decimal `json:"max,omitempty"`
	Unit string           `json:"unit,omitempty"`
}

// UnitConverter is the external collaborator contract for physical-unit
// conversion. A nil converter performs no conversion: values pass
// through as-is, while Resolve still records a non-empty target unit as
// Unit. Callers that need cross-unit comparison must supply a real
// implementation.
type UnitConverter interface {
	// Convert returns value expressed in toUnit, or ok=false if the
	// conversion is unsupported.
	Convert(value decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool)
}

// Resolver normalizes raw min|max|range axis blocks into Constraint
// values, optionally delegating cross-unit normalization to an injected
// UnitConverter.
type Resolver struct {
	log       *logger.Logger
	converter UnitConverter // nil: no unit conversion, values pass through as-is
}

func NewResolver(log *logger.Logger, converter UnitConverter) *Resolver {
	return &Resolver{log: log.With("component", "quantitative.Resolver"), converter: converter}
}

// RawAxis is the boundary shape arriving from the LLM extractor: a
// free-form numeric string per bound, plus an optional unit token.
type RawAxis struct {
	Axis string
	Min  string
	Max  string
	Unit string
}

// Resolve parses raw's bounds into decimals. A bound that fails to
// parse is dropped (logged at debug) rather than raising, the
// orchestrator's lowercase-fallback contract applies one level up, not
// here; a single bad axis should not sink the whole listing.
func (r *Resolver) Resolve(raw RawAxis, targetUnit string) Constraint {
	out := Constraint{Axis: strings.ToLower(strings.TrimSpace(raw.Axis)), Unit: raw.Unit}

	if min, ok := r.parseBound(raw.Min, raw.Unit, targetUnit); ok {
		out.Min = &min
	}
	if max, ok := r.parseBound(raw.Max, raw.Unit, targetUnit); ok {
		out.Max = &max
	}
	if targetUnit != "" {
		out.Unit = targetUnit
	}
	return out
}

func (r *Resolver) parseBound(raw, fromUnit, toUnit string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		r.log.Debug("quantitative bound failed to parse, dropping", "raw", raw, "error", err)
		return decimal.Decimal{}, false
	}

	if r.converter == nil || toUnit == "" || toUnit == fromUnit {
		return val, true
	}
	converted, ok := r.converter.Convert(val, fromUnit, toUnit)
	if !ok {
		r.log.Debug("unit conversion unsupported, keeping source unit", "from", fromUnit, "to", toUnit)
		return val, true
	}
	return converted, true
}

// String renders a human-readable constraint, used by report/debug
// surfaces outside the core.
func (c Constraint) String() string {
	switch {
	case c.Min != nil && c.Max != nil:
		return fmt.Sprintf("%s: [%s, %s] %s", c.Axis, c.Min, c.Max, c.Unit)
	case c.Min != nil:
		return fmt.Sprintf("%s: >= %s %s", c.Axis, c.Min, c.Unit)
	case c.Max != nil:
		return fmt.Sprintf("%s: <= %s %s", c.Axis, c.Max, c.Unit)
	default:
		return fmt.Sprintf("%s: (unbounded)", c.Axis)
	}
}
