package preprocess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestPreprocess_MWEReduction(t *testing.T) {
	cond := strptr("condition")
	require.Equal(t, "used", Preprocess("pre-owned", cond))
	require.Equal(t, "used", Preprocess("second hand", cond))
	require.Equal(t, "used", Preprocess("2nd hand", cond))
	require.Equal(t, "very_good", Preprocess("gently worn", cond))
}

func TestPreprocess_AbbreviationExpansion(t *testing.T) {
	amenity := strptr("amenity")
	require.Equal(t, "air conditioning", Preprocess("ac", amenity))
	// Expansion is attribute-independent: the full-string lookup fires
	// with no attribute key supplied too.
	require.Equal(t, "air conditioning", Preprocess("a/c", nil))
}

func TestPreprocess_DemonymGatedByAttribute(t *testing.T) {
	nationality := strptr("nationality")
	require.Equal(t, "india", Preprocess("indian", nationality))

	language := strptr("language")
	require.Equal(t, "english", Preprocess("english", language), "demonym step must not fire for unrelated attributes")
}

func TestPreprocess_Idempotent(t *testing.T) {
	cases := []struct {
		value string
		attr  *string
	}{
		{"Pre-Owned", strptr("condition")},
		{"  Gently   Worn  ", strptr("condition")},
		{"AC", strptr("amenity")},
		{"Indian", strptr("nationality")},
		{"English", strptr("language")},
		{"laptops", nil},
	}
	for _, c := range cases {
		once := Preprocess(c.value, c.attr)
		twice := Preprocess(once, c.attr)
		require.Equal(t, once, twice, "preprocess(preprocess(x,k),k) must equal preprocess(x,k) for %q", c.value)
	}
}

func TestPreprocess_NeverPanicsOnEmpty(t *testing.T) {
	require.Equal(t, "", Preprocess("", nil))
	require.Equal(t, "", Preprocess("", strptr("condition")))
}

func TestNormalizeForRegistryLookup_CompoundEquivalence(t *testing.T) {
	a := NormalizeForRegistryLookup("second hand")
	b := NormalizeForRegistryLookup("second-hand")
	c := NormalizeForRegistryLookup("secondhand")
	require.Equal(t, a, b)
	require.Equal(t, b, c)
	require.Equal(t, "secondhand", a)
}
