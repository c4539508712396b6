package dicts

// AttributeValueParents records, per attribute, the parent chain
// (root-first) sitting between the attribute key and a canonical value
// in its concept path. This is how the condition tier's hierarchy
// ("very_good" is a grade of "used") survives into paths like
// [condition, used, very_good] even when the value itself never
// resolves through a lexical source.
var AttributeValueParents = map[string]map[string][]string{
	"condition": {
		"like_new":   {"used"},
		"very_good":  {"used"},
		"good":       {"used"},
		"acceptable": {"used"},
		"damaged":    {"used"},
		"for_parts":  {"used"},
	},
}

// ValueParents returns the parent chain for value under attributeKey,
// or nil when none is recorded.
func ValueParents(attributeKey, value string) []string {
	table, ok := AttributeValueParents[attributeKey]
	if !ok {
		return nil
	}
	return table[value]
}
