package quantitative

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/canonengine/canonengine/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestResolve_ParsesMinAndMax(t *testing.T) {
	r := NewResolver(testLogger(t), nil)
	c := r.Resolve(RawAxis{Axis: "Cost", Min: "10.50", Max: "99.99", Unit: "usd"}, "")

	require.Equal(t, "cost", c.Axis)
	require.True(t, c.Min.Equal(decimal.RequireFromString("10.50")))
	require.True(t, c.Max.Equal(decimal.RequireFromString("99.99")))
	require.Equal(t, "usd", c.Unit)
}

func TestResolve_DropsUnparseableBoundWithoutFailingTheWhole(t *testing.T) {
	r := NewResolver(testLogger(t), nil)
	c := r.Resolve(RawAxis{Axis: "storage", Min: "not-a-number", Max: "512", Unit: "gb"}, "")

	require.Nil(t, c.Min)
	require.NotNil(t, c.Max)
	require.True(t, c.Max.Equal(decimal.RequireFromString("512")))
}

func TestResolve_BlankBoundsLeaveBothNil(t *testing.T) {
	r := NewResolver(testLogger(t), nil)
	c := r.Resolve(RawAxis{Axis: "storage", Min: "  ", Max: ""}, "")

	require.Nil(t, c.Min)
	require.Nil(t, c.Max)
}

func TestResolve_NoConverter_TargetUnitOverridesLabelButValuesPassThrough(t *testing.T) {
	r := NewResolver(testLogger(t), nil)
	c := r.Resolve(RawAxis{Axis: "storage", Min: "1", Unit: "tb"}, "gb")

	require.Equal(t, "gb", c.Unit, "target unit is recorded even though no conversion ran")
	require.True(t, c.Min.Equal(decimal.RequireFromString("1")), "raw value passes through unconverted")
}

type fakeConverter struct {
	supported bool
	factor    decimal.Decimal
}

func (f *fakeConverter) Convert(value decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool) {
	if !f.supported {
		return decimal.Decimal{}, false
	}
	return value.Mul(f.factor), true
}

func TestResolve_WithConverter_AppliesConversionWhenUnitsDiffer(t *testing.T) {
	conv := &fakeConverter{supported: true, factor: decimal.RequireFromString("1000")}
	r := NewResolver(testLogger(t), conv)

	c := r.Resolve(RawAxis{Axis: "storage", Min: "1", Max: "2", Unit: "tb"}, "gb")
	require.True(t, c.Min.Equal(decimal.RequireFromString("1000")))
	require.True(t, c.Max.Equal(decimal.RequireFromString("2000")))
	require.Equal(t, "gb", c.Unit)
}

func TestResolve_WithConverter_SameUnitSkipsConversion(t *testing.T) {
	conv := &fakeConverter{supported: true, factor: decimal.RequireFromString("1000")}
	r := NewResolver(testLogger(t), conv)

	c := r.Resolve(RawAxis{Axis: "storage", Min: "5", Unit: "gb"}, "gb")
	require.True(t, c.Min.Equal(decimal.RequireFromString("5")))
}

func TestResolve_WithConverter_UnsupportedConversionKeepsSourceValue(t *testing.T) {
	conv := &fakeConverter{supported: false}
	r := NewResolver(testLogger(t), conv)

	c := r.Resolve(RawAxis{Axis: "storage", Min: "5", Unit: "parsecs"}, "gb")
	require.True(t, c.Min.Equal(decimal.RequireFromString("5")))
}

func TestConstraint_String_Variants(t *testing.T) {
	min := decimal.RequireFromString("1")
	max := decimal.RequireFromString("2")

	require.Equal(t, "cost: [1, 2] usd", Constraint{Axis: "cost", Min: &min, Max: &max, Unit: "usd"}.String())
	require.Equal(t, "cost: >= 1 usd", Constraint{Axis: "cost", Min: &min, Unit: "usd"}.String())
	require.Equal(t, "cost: <= 2 usd", Constraint{Axis: "cost", Max: &max, Unit: "usd"}.String())
	require.Equal(t, "cost: (unbounded)", Constraint{Axis: "cost"}.String())
}
