// Package orchestrate implements the listing orchestrator: it walks a
// structured extractor document (domain, items, item exclusions,
// other-party preferences/exclusions, self attributes/exclusions, and
// location), dispatching every categorical value to the categorical
// resolver, every numeric axis to the quantitative resolver, and the
// location fields to the geocoder, then triggers an ontology flush
// once the listing is fully processed.
//
// The document shape is a loosely-typed map[string]any rather than a
// fixed struct: the engine sits between an LLM extractor and a
// downstream schema normalizer, and must round-trip whatever shape the
// extractor emits untouched except for the fields it knows how to
// canonicalize.
package orchestrate

import (
	"context"
	"strings"

	"github.com/canonengine/canonengine/internal/canon/geocode"
	"github.com/canonengine/canonengine/internal/canon/keycanon"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/ontology"
	"github.com/canonengine/canonengine/internal/canon/quantitative"
	"github.com/canonengine/canonengine/internal/canon/resolver"
	"github.com/canonengine/canonengine/internal/logger"
)

// Orchestrator wires the categorical resolver, key canonicalizer,
// quantitative resolver, and geocoder into the single
// CanonicalizeListing(listing) operation.
type Orchestrator struct {
	log *logger.Logger

	resolver     *resolver.Resolver
	keyCanon     *keycanon.Canonicalizer
	quantitative *quantitative.Resolver
	geocoder     *geocode.Client
	store        *ontology.Store
}

func New(
	log *logger.Logger,
	res *resolver.Resolver,
	keyCanon *keycanon.Canonicalizer,
	quant *quantitative.Resolver,
	geocoder *geocode.Client,
	store *ontology.Store,
) *Orchestrator {
	return &Orchestrator{
		log:          log.With("component", "orchestrate.Orchestrator"),
		resolver:     res,
		keyCanon:     keyCanon,
		quantitative: quant,
		geocoder:     geocoder,
		store:        store,
	}
}

// CanonicalizeListing canonicalizes a listing in place (on a deep copy)
// and returns it. Any top-level panic is recovered and converted to
// the lowercase fallback: the matcher always receives a document of
// the same shape, degraded rather than blocked.
func (o *Orchestrator) CanonicalizeListing(ctx context.Context, listing map[string]any) (result map[string]any) {
	canonical := deepCopyMap(listing)

	defer func() {
		if r := recover(); r != nil {
			o.log.Warn("listing canonicalization panicked, applying lowercase fallback", "recovered", r)
			result = lowercaseFallback(listing)
		}
	}()

	var domainContext string
	if domain, ok := stringSlice(canonical["domain"]); ok && len(domain) > 0 {
		domain = lowercaseSlice(domain)
		canonical["domain"] = domain
		domainContext = strings.Join(domain, " ")
	}

	if items, ok := canonical["items"].([]any); ok && len(items) > 0 {
		canonical["items"] = o.canonicalizeItems(ctx, items, domainContext)
	}

	if exclusions, ok := stringSlice(canonical["item_exclusions"]); ok && len(exclusions) > 0 {
		canonical["item_exclusions"] = o.canonicalizeExclusions(ctx, exclusions)
	}

	if prefs, ok := canonical["other_party_preferences"].(map[string]any); ok && len(prefs) > 0 {
		canonical["other_party_preferences"] = o.canonicalizePreferences(ctx, prefs)
	}

	if exclusions, ok := stringSlice(canonical["other_party_exclusions"]); ok && len(exclusions) > 0 {
		canonical["other_party_exclusions"] = o.canonicalizeExclusions(ctx, exclusions)
	}

	if attrs, ok := canonical["self_attributes"].(map[string]any); ok && len(attrs) > 0 {
		canonical["self_attributes"] = o.canonicalizePreferences(ctx, attrs)
	}

	if exclusions, ok := stringSlice(canonical["self_exclusions"]); ok && len(exclusions) > 0 {
		canonical["self_exclusions"] = o.canonicalizeExclusions(ctx, exclusions)
	}

	if loc, ok := canonical["target_location"].(map[string]any); ok && len(loc) > 0 {
		o.canonicalizeLocation(ctx, loc)
	}

	if excl, ok := stringSlice(canonical["location_exclusions"]); ok && len(excl) > 0 {
		canonical["location_exclusions"] = anySlice(lowercaseSlice(excl))
	}

	if o.store != nil {
		if flushed, err := o.store.FlushToDB(ctx); err != nil {
			o.log.Warn("ontology flush failed after listing ingest", "error", err)
		} else if flushed > 0 {
			o.log.Info("ontology flush after listing ingest", "flushed", flushed)
		}
	}

	return canonical
}

// canonicalizeItems canonicalizes item.type (Wikidata-style domain
// context disambiguation, via the resolver's context argument),
// item.categorical (key canonicalization + value resolution), and the
// min/max/range numeric blocks.
func (o *Orchestrator) canonicalizeItems(ctx context.Context, items []any, domainContext string) []any {
	out := make([]any, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}
		canonicalItem := deepCopyMap(item)

		if itemType, ok := item["type"].(string); ok && itemType != "" {
			canonicalItem["type"] = o.canonicalizeType(ctx, itemType, domainContext)
		}

		if categorical, ok := item["categorical"].(map[string]any); ok && len(categorical) > 0 {
			canonicalItem["categorical"] = o.canonicalizeCategoricalMap(ctx, categorical)
		}

		for _, axis := range [...]string{"min", "max", "range"} {
			if constraints, ok := item[axis].(map[string]any); ok && len(constraints) > 0 {
				canonicalItem[axis] = o.canonicalizeConstraints(constraints)
			}
		}

		out = append(out, canonicalItem)
	}
	return out
}

// canonicalizeType routes an item-type token through the same 3-phase
// pipeline as any categorical value, keyed under a synthetic
// "item_type" attribute, using the listing's domain string as the
// disambiguation context when present. Falls back to the lowercased
// token when resolution bottoms out at the fallback node.
func (o *Orchestrator) canonicalizeType(ctx context.Context, itemType, domainContext string) string {
	attributeKey := "item_type"
	resolveContext := domainContext
	if resolveContext == "" {
		resolveContext = itemType
	}
	node := o.resolver.Resolve(ctx, itemType, resolveContext, &attributeKey)
	if node.Source == model.SourceFallback {
		return strings.ToLower(itemType)
	}
	return node.ConceptID
}

// canonicalizeCategoricalMap canonicalizes every key via the key
// canonicalizer (domain-scoped on "item_type" since no richer domain
// scope is available at this nesting level) and every value via the
// categorical resolver. The matching engine expects categorical values
// to be plain concept_id strings, never the full OntologyNode.
func (o *Orchestrator) canonicalizeCategoricalMap(ctx context.Context, categorical map[string]any) map[string]any {
	out := make(map[string]any, len(categorical))
	for key, rawValue := range categorical {
		value, ok := rawValue.(string)
		if !ok {
			out[key] = rawValue
			continue
		}
		canonicalKey := key
		if o.keyCanon != nil {
			canonicalKey = o.keyCanon.Canonicalize(ctx, "item_type", key)
		}
		node := o.resolver.Resolve(ctx, value, value, &canonicalKey)
		out[canonicalKey] = node.ConceptID
	}
	return out
}

func (o *Orchestrator) canonicalizeExclusions(ctx context.Context, exclusions []string) []any {
	out := make([]any, 0, len(exclusions))
	for _, value := range exclusions {
		node := o.resolver.Resolve(ctx, value, value, nil)
		out = append(out, node.ConceptID)
	}
	return out
}

// canonicalizePreferences canonicalizes an other_party_preferences or
// self_attributes block: identity and lifestyle entries (each
// {type, value}) resolve through the ontology; habits pass through
// as-is (yes/no flags, not ontological); min/max/range delegate to the
// quantitative resolver.
func (o *Orchestrator) canonicalizePreferences(ctx context.Context, prefs map[string]any) map[string]any {
	out := deepCopyMap(prefs)

	for _, field := range [...]string{"identity", "lifestyle"} {
		entries, ok := prefs[field].([]any)
		if !ok || len(entries) == 0 {
			continue
		}
		out[field] = o.canonicalizeTypedValues(ctx, entries)
	}

	for _, axis := range [...]string{"min", "max", "range"} {
		if constraints, ok := prefs[axis].(map[string]any); ok && len(constraints) > 0 {
			out[axis] = o.canonicalizeConstraints(constraints)
		}
	}

	return out
}

// canonicalizeTypedValues resolves a list of {type, value} entries,
// keying the resolve call's attribute hint off each entry's own "type"
// field.
func (o *Orchestrator) canonicalizeTypedValues(ctx context.Context, entries []any) []any {
	out := make([]any, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			out = append(out, raw)
			continue
		}
		value, ok := entry["value"].(string)
		if !ok {
			out = append(out, raw)
			continue
		}
		var attributeKey *string
		if t, ok := entry["type"].(string); ok && t != "" {
			attributeKey = &t
		}
		node := o.resolver.Resolve(ctx, value, value, attributeKey)
		out = append(out, map[string]any{"type": entry["type"], "value": node.ConceptID})
	}
	return out
}

// canonicalizeConstraints normalizes every attribute in every axis
// bucket of a min/max/range block via the quantitative resolver. The
// cost axis is currency (no physical-unit conversion applies); every
// other axis is a physical-unit quantity.
func (o *Orchestrator) canonicalizeConstraints(constraints map[string]any) map[string]any {
	out := make(map[string]any, len(constraints))
	for axis, rawAttrs := range constraints {
		attrs, ok := rawAttrs.([]any)
		if !ok {
			out[axis] = rawAttrs
			continue
		}
		canonicalAttrs := make([]any, 0, len(attrs))
		for _, rawAttr := range attrs {
			attr, ok := rawAttr.(map[string]any)
			if !ok {
				canonicalAttrs = append(canonicalAttrs, rawAttr)
				continue
			}
			canonicalAttrs = append(canonicalAttrs, o.canonicalizeConstraintAttr(axis, attr))
		}
		out[axis] = canonicalAttrs
	}
	return out
}

func (o *Orchestrator) canonicalizeConstraintAttr(axis string, attr map[string]any) map[string]any {
	out := deepCopyMap(attr)
	rawValue, hasValue := attr["value"].(string)
	if !hasValue || o.quantitative == nil {
		return out
	}

	unit, _ := attr["unit"].(string)
	if axis == "cost" {
		currency, _ := attr["currency"].(string)
		if currency == "" {
			currency = unit
		}
		resolved := o.quantitative.Resolve(unitAxis("cost", rawValue, currency), currency)
		if resolved.Min != nil {
			out["value"] = resolved.Min.String()
			out["currency"] = resolved.Unit
			delete(out, "unit")
		}
		return out
	}

	resolved := o.quantitative.Resolve(unitAxis(axis, rawValue, unit), unit)
	if resolved.Min != nil {
		out["value"] = resolved.Min.String()
		out["unit"] = resolved.Unit
	}
	return out
}

func unitAxis(axis, value, unit string) quantitative.RawAxis {
	return quantitative.RawAxis{Axis: axis, Min: value, Unit: unit}
}

// canonicalizeLocation lowercases location name/origin/destination
// fields and geocodes each into coordinates, mutating loc in place.
func (o *Orchestrator) canonicalizeLocation(ctx context.Context, loc map[string]any) {
	o.geocodeField(ctx, loc, "name", "coordinates", "canonical_name")
	o.geocodeField(ctx, loc, "origin", "origin_coordinates", "origin_canonical")
	o.geocodeField(ctx, loc, "destination", "destination_coordinates", "destination_canonical")
}

func (o *Orchestrator) geocodeField(ctx context.Context, loc map[string]any, field, coordsKey, canonicalKey string) {
	raw, ok := loc[field].(string)
	if !ok || raw == "" {
		return
	}
	loc[field] = strings.ToLower(raw)

	if o.geocoder == nil {
		return
	}
	result, ok := o.geocoder.Geocode(ctx, raw)
	if !ok {
		return
	}
	loc[coordsKey] = map[string]any{"lat": result.Point.Lat, "lng": result.Point.Lon}
	canonicalName := result.DisplayName
	if canonicalName == "" {
		canonicalName = raw
	}
	loc[canonicalKey] = canonicalName
}

// lowercaseFallback deep-copies listing and lowercases item.type and
// item.categorical string values. This is the degraded-mode contract
// applied on any top-level failure.
func lowercaseFallback(listing map[string]any) map[string]any {
	fallback := deepCopyMap(listing)
	items, ok := fallback["items"].([]any)
	if !ok {
		return fallback
	}
	lowered := make([]any, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			lowered = append(lowered, raw)
			continue
		}
		copyItem := deepCopyMap(item)
		if t, ok := item["type"].(string); ok {
			copyItem["type"] = strings.ToLower(t)
		}
		if categorical, ok := item["categorical"].(map[string]any); ok {
			copyItem["categorical"] = lowercaseAnyMap(categorical)
		}
		lowered = append(lowered, copyItem)
	}
	fallback["items"] = lowered
	return fallback
}

func lowercaseAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = strings.ToLower(s)
			continue
		}
		out[k] = v
	}
	return out
}

func lowercaseSlice(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.ToLower(v)
	}
	return out
}

func anySlice(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func stringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// deepCopyMap performs a shallow-per-level deep copy sufficient for this
// package's mutation pattern: every nested map/slice the orchestrator
// writes into is copied before use, so the caller's input is never
// mutated.
func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return deepCopyMap(vv)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
