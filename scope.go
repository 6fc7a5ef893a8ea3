package jsonschema

// scopeParent records how a Scope was opened, so unwindScope knows what
// handling class applies when the child finishes.
type scopeParent struct {
	// Index of the parent Scope in the Validator's arena, or -1 for the
	// single root Scope.
	Index int

	// App is the applicator keyword that opened this Scope, or nil for the
	// arena's single root Scope.
	App *Application
}

// unevaluatedOutcome is one outcome produced by a speculative
// unevaluatedProperties/unevaluatedItems child scope, held until finishScope
// knows whether the child index it governs was claimed by some other
// applicator in the meantime.
type unevaluatedOutcome struct {
	ChildIdx int
	Entry    OutcomeEntry
}

// Scope is one node of the validation arena: exactly one compiled schema
// applied to exactly one instance value, plus the bookkeeping its applicator
// needs once every sibling and child scope relevant to it has closed.
//
// A single instance value is usually governed by several Scopes at once
// (one per applicator occurrence reachable by in-place expansion: the
// schema itself, each allOf member, each anyOf/oneOf branch, an if/then/else
// triad, ...). The Validator's "active window" is the contiguous run of
// arena entries opened for the value currently being walked; every Scope in
// that window receives the same push/pop events.
type Scope struct {
	Parent scopeParent

	// Loc is this scope's instance Location, used to build keywordLocation /
	// instancePointer strings lazily, only when an outcome actually fires.
	Loc Location

	// Schema is the single compiled schema this scope evaluates. Unlike a
	// tree-walking validator there is no need to merge sibling applicators
	// into one node: each gets its own Scope, and unwindScope folds verdicts
	// up the tree explicitly.
	Schema *CompiledSchema

	// ChildIdx is the push-order index this scope was opened for, when it
	// was opened by a container-child applicator (properties,
	// patternProperties, additionalProperties, prefixItems, items,
	// additionalItems, contains, unevaluated*). -1 for propertyNames scopes
	// and for in-place scopes (allOf, ref, anyOf/oneOf branches,
	// if/then/else, dependentSchemas, not), where it is meaningless.
	ChildIdx int

	// Invalid narrows to true the moment any validation this scope owns, or
	// any child it must propagate, fails. Zero value (false) is vacuously
	// valid, matching the empty-schema and {} cases.
	Invalid bool

	// Outcomes accumulates this scope's own error/annotation entries plus
	// whatever its required children drained into it. Promoted up the tree
	// by unwindScope as each ancestor closes; the root scope (index 0) ends
	// up holding the walk's complete outcome list.
	Outcomes []OutcomeEntry

	// ValueType / TheSpan record the instance value this scope last saw,
	// filled in by checkValidations just before leaf predicates run.
	ValueType TypeSet
	TheSpan   Span

	// SeenNames is this scope's own view of which interned property names
	// have appeared on the object so far. Updated unconditionally by
	// push_property regardless of whether any applicator of this scope
	// matched the name, since Required/DependentRequired care only that the
	// property existed.
	SeenNames InternSet

	// Evaluated tracks, by child push-order index, whether some non-
	// speculative applicator of this scope claimed that property or item.
	// Read by unevaluatedProperties/unevaluatedItems siblings and folded
	// against ValidUnevaluated in finishScope.
	Evaluated []bool

	// ValidIf is nil until this scope's own "if" applicator (if any) has
	// closed, then holds its verdict for the sibling "then"/"else" scopes to
	// consult when they unwind.
	ValidIf *bool

	// ValidAnyOf / ValidOneOf collect one bool per anyOf/oneOf branch scope
	// as it unwinds, tallied in finishScope once every branch has reported.
	ValidAnyOf []bool
	ValidOneOf []bool

	// ContainsCount tallies how many items a "contains" applicator of this
	// (array) scope matched, incremented as each item's window closes.
	// Checked against ValMinContains/ValMaxContains in checkValidations at
	// this scope's own pop, by which point every item has already unwound.
	ContainsCount int

	// OutcomesUnevaluated / ValidUnevaluated hold the deferred verdicts of
	// unevaluatedProperties/unevaluatedItems child scopes until finishScope
	// knows the final Evaluated vector: an outcome is only real if its
	// child index never got claimed by anything else, and a scope that
	// still has an unclaimed, unevaluated child after folding is invalid.
	OutcomesUnevaluated []unevaluatedOutcome
	ValidUnevaluated    []bool

	// UniqueHashes is non-nil exactly when this scope's schema has a
	// uniqueItems validation, materialized at expansion time. Checked and
	// grown in Validator.pop as each item closes, not in checkValidations.
	UniqueHashes map[uint64]struct{}
}

// newScope allocates a fresh Scope ready to receive its value's push event.
func newScope(parent scopeParent, loc Location) Scope {
	return Scope{Parent: parent, Loc: loc, ChildIdx: -1}
}
