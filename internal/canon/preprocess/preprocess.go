// Package preprocess implements phase 0 of the canonicalization pipeline:
// deterministic, local, static-dictionary-driven text normalization. No
// network calls occur here, matching the "created at module
// initialization; immutable" lifecycle of the tables it consults.
package preprocess

import (
	"strings"
	"unicode"

	"github.com/canonengine/canonengine/internal/canon/dicts"
)

// Preprocess runs the six-step normalization pipeline against value,
// optionally gated by attributeKey (nil or empty skips the MWE
// attribute-specific lookup and the demonym step entirely). It never
// panics: each stage recovers to the previous stage's output on any
// internal error, matching the "never raises" contract.
func Preprocess(value string, attributeKey *string) (result string) {
	if value == "" {
		return ""
	}

	text := value
	defer func() {
		if r := recover(); r != nil {
			result = text
		}
	}()

	// 1. Lowercase, trim, collapse whitespace.
	text = collapseWhitespace(strings.ToLower(strings.TrimSpace(value)))
	stage1 := text

	// 2. Abbreviation expansion: full-string then token-wise.
	text = func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = stage1
			}
		}()
		return expandAbbreviations(stage1)
	}()
	stage2 := text

	// 3. MWE reduction: attribute-specific first, then general.
	text = func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = stage2
			}
		}()
		return reduceMWE(stage2, attributeKey)
	}()
	stage3 := text

	// 4. UK -> US spelling, token-wise.
	text = func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = stage3
			}
		}()
		return normalizeSpelling(stage3)
	}()
	stage4 := text

	// 5. Demonym resolution, gated by attribute allowlist.
	text = func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = stage4
			}
		}()
		return resolveDemonym(stage4, attributeKey)
	}()
	stage5 := text

	// 6. Lemmatize single-word residues.
	text = func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = stage5
			}
		}()
		return lemmatizeIfSingleWord(stage5)
	}()

	return strings.TrimSpace(text)
}

// NormalizeForRegistryLookup produces the "compound-normalized" form the
// synonym registry indexes alongside the plain lowercase-trim form:
// lowercase, then strip all whitespace, hyphens, and underscores, so
// "second hand", "second-hand", and "secondhand" collide.
func NormalizeForRegistryLookup(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if r == ' ' || r == '-' || r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func expandAbbreviations(text string) string {
	if expanded, ok := dicts.Abbreviations[text]; ok {
		return expanded
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	out := make([]string, len(words))
	for i, w := range words {
		if expanded, ok := dicts.Abbreviations[w]; ok {
			out[i] = expanded
		} else {
			out[i] = w
		}
	}
	return strings.Join(out, " ")
}

func reduceMWE(text string, attributeKey *string) string {
	if attributeKey != nil && *attributeKey != "" {
		attrKey := strings.ToLower(strings.TrimSpace(*attributeKey))
		if attrTable, ok := dicts.AttributeMWE[attrKey]; ok {
			if reduced, ok := attrTable[text]; ok {
				text = reduced
			}
		}
	}
	if reduced, ok := dicts.GeneralMWE[text]; ok {
		text = reduced
	}
	return text
}

func normalizeSpelling(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	out := make([]string, len(words))
	for i, w := range words {
		if us, ok := dicts.UKToUSSpelling[w]; ok {
			out[i] = us
		} else {
			out[i] = w
		}
	}
	return strings.Join(out, " ")
}

func resolveDemonym(text string, attributeKey *string) string {
	if attributeKey == nil || *attributeKey == "" {
		return text
	}
	attrKey := strings.ToLower(strings.TrimSpace(*attributeKey))
	if _, allowed := dicts.DemonymAllowedAttributes[attrKey]; !allowed {
		return text
	}
	if country, ok := dicts.Demonyms[text]; ok {
		return country
	}
	return text
}

func lemmatizeIfSingleWord(text string) string {
	words := strings.Fields(text)
	if len(words) != 1 {
		return text
	}
	lemma := lemmatize(words[0])
	if lemma == "" || len(lemma) <= 1 {
		return text
	}
	return lemma
}

// lemmatize is a small rule-based noun lemmatizer. It only strips
// common inflectional suffixes and leaves irregular forms untouched: a
// corpus-backed lemmatizer keeps the surface form when it has no better
// answer, and this conservative approximation preserves that failure
// mode.
func lemmatize(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ses") && len(word) > 4:
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 3:
		return word[:len(word)-1]
	default:
		return word
	}
}
