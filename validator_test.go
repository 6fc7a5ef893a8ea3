package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildValidator compiles schemaJSON and returns a Validator with full
// location tracking enabled, so tests can assert on keywordLocation and
// instanceLocation as well as plain validity.
func buildValidator(t *testing.T, schemaJSON string) *Validator {
	t.Helper()
	compiler := NewCompiler()
	v, err := compiler.CompileValidator([]byte(schemaJSON))
	require.NoError(t, err)
	return v.WithFullContext()
}

// TestMinimumViolationReportsLocation covers scenario 1: a single error at
// keywordLocation="/minimum", instanceLocation="".
func TestMinimumViolationReportsLocation(t *testing.T) {
	v := buildValidator(t, `{"type":"integer","minimum":0}`)
	driveValue(v, float64(-1))

	assert.True(t, v.Invalid())
	out := v.BasicOutput()
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "/minimum", out.Errors[0].KeywordLocation)
	assert.Equal(t, "", out.Errors[0].InstanceLocation)
}

// TestNestedKeywordLocationJoinsApplicatorChain covers the applicator-chain
// half of keyword location reporting: a failure under properties/allOf must
// report every hop root-first, ending in the failing keyword itself.
func TestNestedKeywordLocationJoinsApplicatorChain(t *testing.T) {
	v := buildValidator(t, `{"properties":{"a":{"allOf":[{"minimum":5}]}}}`)
	driveValue(v, map[string]interface{}{"a": float64(1)})

	assert.True(t, v.Invalid())
	out := v.BasicOutput()
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "/properties/a/allOf/minimum", out.Errors[0].KeywordLocation)
	assert.Equal(t, "/a", out.Errors[0].InstanceLocation)
}

// TestOneOfNotMatched covers scenario 2.
func TestOneOfNotMatched(t *testing.T) {
	v := buildValidator(t, `{"oneOf":[{"type":"string"},{"type":"number"}]}`)
	driveValue(v, true)

	assert.True(t, v.Invalid())
	found := false
	for _, oe := range v.Outcomes() {
		if oe.Outcome.Kind == OutcomeOneOfNotMatched {
			found = true
		}
	}
	assert.True(t, found, "expected a OutcomeOneOfNotMatched outcome")
}

// TestUnevaluatedPropertiesRejectsUnknownProperty covers scenario 3.
func TestUnevaluatedPropertiesRejectsUnknownProperty(t *testing.T) {
	v := buildValidator(t, `{"properties":{"a":{"type":"number"}},"unevaluatedProperties":false}`)
	driveValue(v, map[string]interface{}{"a": float64(1), "b": float64(2)})
	assert.True(t, v.Invalid())
}

// TestUnevaluatedPropertiesAcceptsFullyEvaluatedInstance covers scenario 4.
func TestUnevaluatedPropertiesAcceptsFullyEvaluatedInstance(t *testing.T) {
	v := buildValidator(t, `{"properties":{"a":{"type":"number"}},"unevaluatedProperties":false}`)
	driveValue(v, map[string]interface{}{"a": float64(1)})
	assert.False(t, v.Invalid())
	assert.Empty(t, v.BasicOutput().Errors)
}

// TestUnevaluatedPropertiesThroughAnyOf is the regression for the anyOf
// branch never folding its Evaluated bits into the parent: a property only
// evaluated inside a matching anyOf branch must still count as evaluated.
func TestUnevaluatedPropertiesThroughAnyOf(t *testing.T) {
	v := buildValidator(t, `{"anyOf":[{"properties":{"a":{"type":"number"}}}],"unevaluatedProperties":false}`)
	driveValue(v, map[string]interface{}{"a": float64(1)})
	assert.False(t, v.Invalid(), "property evaluated by a matching anyOf branch must count as evaluated")
}

// TestUnevaluatedPropertiesThroughOneOf mirrors the anyOf regression for
// oneOf: the single winning branch's evaluated bits must fold into the
// parent too.
func TestUnevaluatedPropertiesThroughOneOf(t *testing.T) {
	v := buildValidator(t, `{"oneOf":[{"properties":{"a":{"type":"number"}},"required":["a"]},{"type":"string"}],"unevaluatedProperties":false}`)
	driveValue(v, map[string]interface{}{"a": float64(1)})
	assert.False(t, v.Invalid(), "property evaluated by the matching oneOf branch must count as evaluated")
}

// TestUnevaluatedItemsThroughContains pins that, unlike a matching anyOf or
// oneOf branch, contains does not count as evaluating an item: an item only
// the contains subschema matched is still rejected by unevaluatedItems.
func TestUnevaluatedItemsThroughContains(t *testing.T) {
	v := buildValidator(t, `{"contains":{"type":"number"},"unevaluatedItems":false}`)
	driveValue(v, []interface{}{float64(1)})
	assert.True(t, v.Invalid(), "item matched only by contains stays unevaluated")
}

// TestIfThenRequiresThenBranchOnMatch covers scenario 5.
func TestIfThenRequiresThenBranchOnMatch(t *testing.T) {
	v := buildValidator(t, `{"if":{"required":["x"]},"then":{"required":["y"]}}`)
	driveValue(v, map[string]interface{}{"x": float64(1)})
	assert.True(t, v.Invalid(), "then branch's required y is missing")
}

func TestIfThenSkipsThenBranchWhenIfFails(t *testing.T) {
	v := buildValidator(t, `{"if":{"required":["x"]},"then":{"required":["y"]}}`)
	driveValue(v, map[string]interface{}{})
	assert.False(t, v.Invalid(), "if condition did not match, then must not apply")
}

// TestRecursiveRefValidNesting and TestRecursiveRefInvalidNesting cover
// scenario 6.
func TestRecursiveRefValidNesting(t *testing.T) {
	v := buildValidator(t, `{"$recursiveAnchor":true,"properties":{"next":{"$recursiveRef":"#"}}}`)
	driveValue(v, map[string]interface{}{
		"next": map[string]interface{}{
			"next": map[string]interface{}{},
		},
	})
	assert.False(t, v.Invalid())
}

func TestRecursiveRefInvalidNesting(t *testing.T) {
	v := buildValidator(t, `{"type":"object","$recursiveAnchor":true,"properties":{"next":{"$recursiveRef":"#"}}}`)
	driveValue(v, map[string]interface{}{"next": float64(5)})
	assert.True(t, v.Invalid())
}

// TestOutcomesStableAcrossFreshValidators covers invariant 6: replaying the
// same events on a fresh Validator built from the same schema yields the
// same outcome sequence (compared by kind, since Context values embed
// Spans that are not comparable with assert.Equal's deep-equal semantics
// when built from two independent walks).
func TestOutcomesStableAcrossFreshValidators(t *testing.T) {
	schemaJSON := `{"properties":{"a":{"type":"number"}},"required":["a"]}`
	instance := map[string]interface{}{"b": true}

	var kinds [][]OutcomeKind
	for i := 0; i < 2; i++ {
		v := buildValidator(t, schemaJSON)
		driveValue(v, instance)
		var ks []OutcomeKind
		for _, oe := range v.Outcomes() {
			ks = append(ks, oe.Outcome.Kind)
		}
		kinds = append(kinds, ks)
	}
	assert.Equal(t, kinds[0], kinds[1])
}

// TestDependentRequired covers scenario 7.
func TestDependentRequired(t *testing.T) {
	v := buildValidator(t, `{"dependentRequired":{"a":["b"]}}`)
	driveValue(v, map[string]interface{}{"a": float64(1)})
	assert.True(t, v.Invalid(), "b is required when a is present")
}

func TestDependentRequiredSatisfied(t *testing.T) {
	v := buildValidator(t, `{"dependentRequired":{"a":["b"]}}`)
	driveValue(v, map[string]interface{}{"a": float64(1), "b": float64(2)})
	assert.False(t, v.Invalid())
}

func TestDependentRequiredNotTriggered(t *testing.T) {
	v := buildValidator(t, `{"dependentRequired":{"a":["b"]}}`)
	driveValue(v, map[string]interface{}{})
	assert.False(t, v.Invalid())
}

// TestContainsMinContainsSatisfied and TestContainsMinContainsOnlyOneMatch
// cover scenario 8.
func TestContainsMinContainsSatisfied(t *testing.T) {
	v := buildValidator(t, `{"contains":{"type":"number"},"minContains":2}`)
	driveValue(v, []interface{}{float64(1), float64(2), "x"})
	assert.False(t, v.Invalid(), "two numbers satisfy minContains:2")
}

func TestContainsMinContainsOnlyOneMatch(t *testing.T) {
	v := buildValidator(t, `{"contains":{"type":"number"},"minContains":2}`)
	driveValue(v, []interface{}{float64(1), "x"})
	assert.True(t, v.Invalid(), "only one number does not satisfy minContains:2")
}

// TestPropertyNamesPattern covers scenario 9.
func TestPropertyNamesPattern(t *testing.T) {
	v := buildValidator(t, `{"propertyNames":{"pattern":"^[a-z]+$"}}`)
	driveValue(v, map[string]interface{}{"Bad": float64(1)})
	assert.True(t, v.Invalid())
}

func TestPropertyNamesPatternValid(t *testing.T) {
	v := buildValidator(t, `{"propertyNames":{"pattern":"^[a-z]+$"}}`)
	driveValue(v, map[string]interface{}{"good": float64(1)})
	assert.False(t, v.Invalid())
}

// TestBasicOutputShape covers scenario 10.
func TestBasicOutputShape(t *testing.T) {
	v := buildValidator(t, `{"type":"integer","minimum":0}`)
	driveValue(v, float64(-1))

	out := v.BasicOutput()
	assert.False(t, out.Valid)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "/minimum", out.Errors[0].KeywordLocation)
	assert.Equal(t, "", out.Errors[0].InstanceLocation)
	assert.NotEmpty(t, out.Errors[0].AbsoluteKeywordLocation)
	assert.NotEmpty(t, out.Errors[0].Error)
}

// TestDynamicBaseFallsBackToOwnScopeURI exercises dynamicBase's fallback
// directly: with no $recursiveAnchor anywhere in scopeIdx's ancestor chain,
// the base must be scopeIdx's own schema's canonical URI, not the document
// root's. Built by hand rather than through the compiler so the assertion
// pins dynamicBase's own logic, independent of how schema URIs get
// synthesized for unanchored nested nodes.
func TestDynamicBaseFallsBackToOwnScopeURI(t *testing.T) {
	root := &CompiledSchema{URI: "https://example.com/root"}
	inner := &CompiledSchema{URI: "https://example.com/inner"}
	v := &Validator{
		root: root,
		scopes: []Scope{
			{Parent: scopeParent{Index: -1}, Schema: root},
			{Parent: scopeParent{Index: 0}, Schema: inner},
		},
	}

	assert.Equal(t, "https://example.com/inner", v.dynamicBase(1))
}

// TestDynamicBaseUsesOutermostAnchor exercises the anchored branch of
// dynamicBase: with two anchored ancestors, the outermost one wins.
func TestDynamicBaseUsesOutermostAnchor(t *testing.T) {
	root := &CompiledSchema{URI: "https://example.com/root", RecursiveAnchor: true}
	mid := &CompiledSchema{URI: "https://example.com/mid", RecursiveAnchor: true}
	leaf := &CompiledSchema{URI: "https://example.com/leaf"}
	v := &Validator{
		root: root,
		scopes: []Scope{
			{Parent: scopeParent{Index: -1}, Schema: root},
			{Parent: scopeParent{Index: 0}, Schema: mid},
			{Parent: scopeParent{Index: 1}, Schema: leaf},
		},
	}

	assert.Equal(t, "https://example.com/root", v.dynamicBase(2), "outermost anchor must win over a closer one")
}
