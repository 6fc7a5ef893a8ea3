package jsonschema

import (
	"fmt"
	"math/big"

	"github.com/kaptinlin/jsonpointer"
)

// Walker is the event interface a streaming JSON decoder drives a Validator
// with. Events form a depth-first walk of one JSON instance: every push_*
// is eventually matched by exactly one pop_* at the same depth, containers
// bracket their children between push and pop, and push_property always
// precedes the property value's own push/pop pair.
//
// The walk package supplies a concrete Walker over jsontext.Decoder; tests
// drive Validator directly against literal event sequences.
type Walker interface {
	PushProperty(name string)
	PushItem()
	PopObject(span Span)
	PopArray(span Span)
	PopBool(span Span, value bool)
	PopNumeric(span Span, value *Rat)
	PopStr(span Span, value string)
	PopNull(span Span)
}

// windowFrame describes one active window: the contiguous run of Scope
// arena entries opened for the instance value currently being walked at
// this depth, plus the bookkeeping shared by every Scope in it (how many
// children have been pushed so far, and the Location they all share).
type windowFrame struct {
	Start, End int
	Count      int
	Loc        Location
}

// Validator drives a growing arena of Scopes in lock-step with a Walker's
// event stream, evaluating every applicable compiled schema against the
// instance being walked without ever materializing it as a tree.
type Validator struct {
	index *Index
	root  *CompiledSchema

	// scopes only ever grows; once a window closes its entries become inert
	// but are never removed, so indices remain stable for the lifetime of
	// the Validator.
	scopes []Scope

	// windows is the stack of active windows from the root value down to
	// the one currently open. Its top receives the next push/pop event.
	windows []windowFrame

	// fullContext switches keywordLocation/instancePointer string building
	// on. Off by default: most callers only need Invalid().
	fullContext bool

	// assertFormat and customFormats mirror the originating Compiler's
	// format configuration (see Compiler.AssertFormat/RegisterFormat):
	// "format" is an annotation-only keyword unless assertFormat is set.
	assertFormat  bool
	customFormats map[string]*FormatDef
}

// NewValidator prepares a Validator against one compiled schema fetched
// from index, rooted at uri.
func NewValidator(index *Index, uri string) (*Validator, error) {
	root, err := index.MustFetch(uri)
	if err != nil {
		return nil, err
	}
	v := &Validator{index: index, root: root}
	v.reset()
	return v, nil
}

// WithFormatAssertion enables "format" as an assertion rather than an
// annotation-only keyword, using custom (taking priority) then built-in
// Formats validators.
func (v *Validator) WithFormatAssertion(assert bool, custom map[string]*FormatDef) *Validator {
	v.assertFormat = assert
	v.customFormats = custom
	return v
}

// WithFullContext enables keywordLocation/instancePointer tracking on
// outcomes, at the cost of building Location chains into strings eagerly.
func (v *Validator) WithFullContext() *Validator {
	v.fullContext = true
	return v
}

func (v *Validator) reset() {
	v.scopes = make([]Scope, 1, 16)
	v.scopes[0] = newScope(scopeParent{Index: -1}, RootLocation())
	v.scopes[0].Schema = v.root
	v.expandScopes(0)
	v.windows = []windowFrame{{Start: 0, End: len(v.scopes), Loc: RootLocation()}}
}

// Invalid reports whether the walk seen so far has produced any validation
// failure. The root scope (arena index 0) accumulates the whole walk's
// verdict as every other scope unwinds into an ancestor and eventually into
// it.
func (v *Validator) Invalid() bool { return v.scopes[0].Invalid }

// Outcomes returns every error and retained annotation recorded during the
// walk, in the order produced.
func (v *Validator) Outcomes() []OutcomeEntry { return v.scopes[0].Outcomes }

// BasicOutput renders the walk's result in the "basic" output shape.
func (v *Validator) BasicOutput() BasicOutput {
	return BuildBasicOutput(!v.Invalid(), v.Outcomes())
}

func (v *Validator) curWindow() windowFrame { return v.windows[len(v.windows)-1] }

// recordLocal appends an outcome directly onto scopeIdx's own Outcomes,
// narrowing Invalid when the outcome is an error. Every outcome this engine
// ever produces is recorded through here (or, for unevaluated* promotion,
// carries an OutcomeEntry built from a past call to here).
func (v *Validator) recordLocal(scopeIdx int, o Outcome) {
	v.scopes[scopeIdx].Outcomes = append(v.scopes[scopeIdx].Outcomes, OutcomeEntry{
		Outcome: o,
		Context: v.contextForScope(scopeIdx, o.keywordFragment()),
	})
	if o.IsError() {
		v.scopes[scopeIdx].Invalid = true
	}
}

func (v *Validator) contextForScope(scopeIdx int, fragment string) Context {
	sc := &v.scopes[scopeIdx]
	if !v.fullContext {
		return SpanContext{TheSpan: sc.TheSpan}
	}
	return FullContext{
		InstancePointer: v.instancePointer(sc.Loc),
		CanonicalURI:    v.root.URI,
		KeywordLocation: v.keywordLocation(scopeIdx, fragment),
		TheSpan:         sc.TheSpan,
	}
}

func (v *Validator) instancePointer(loc Location) string {
	tokens := locationTokens(loc, nil)
	if len(tokens) == 0 {
		return ""
	}
	return jsonpointer.Format(tokens...)
}

// locationTokens collects loc's JSON Pointer reference tokens, root-first,
// prepending onto tail as it unwinds the parent chain.
func locationTokens(loc Location, tail []string) []string {
	switch loc.Kind {
	case LocationRoot:
		return tail
	case LocationProperty:
		return locationTokens(*loc.Parent, append([]string{loc.Name}, tail...))
	case LocationItem:
		return locationTokens(*loc.Parent, append([]string{fmt.Sprint(loc.Index)}, tail...))
	default:
		return tail
	}
}

// keywordLocation walks from scopeIdx back to the root scope, joining each
// hop's applicator fragment pointer, then appends fragment (the reporting
// keyword's own contribution, e.g. "/minimum" or "/anyOf") as the final
// segment.
func (v *Validator) keywordLocation(scopeIdx int, fragment string) string {
	var frags []string
	if fragment != "" {
		frags = append(frags, fragment)
	}
	for i := scopeIdx; i != 0; {
		sc := &v.scopes[i]
		if sc.Parent.App != nil {
			frags = append(frags, sc.Parent.App.FragmentPointer)
		}
		i = sc.Parent.Index
	}
	out := ""
	for i := len(frags) - 1; i >= 0; i-- {
		out += frags[i]
	}
	return out
}

// expandScopes expands every scope in [pivot, len(scopes)), including ones
// appended by the expansion itself, until no more in-place applicators
// remain to discover. Safe to call with pivot == len(scopes) (no-op).
func (v *Validator) expandScopes(pivot int) {
	for i := pivot; i < len(v.scopes); i++ {
		v.expandScope(i)
	}
}

// expandScope discovers scopeIdx's in-place applicators (allOf, ref,
// recursiveRef, dependentSchemas, if/then/else, anyOf/oneOf, not) and opens
// one child scope per occurrence. Boolean-false schemas and uniqueItems
// materialize their terminal state here instead.
func (v *Validator) expandScope(scopeIdx int) {
	cs := v.scopes[scopeIdx].Schema
	if cs.Always != nil {
		if !*cs.Always {
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeInvalid, Validation: &Validation{Kind: ValFalse}})
		}
		return
	}
	if cs.findValidation(ValUniqueItems) != nil {
		v.scopes[scopeIdx].UniqueHashes = map[uint64]struct{}{}
	}
	for i := range cs.Keywords {
		kw := &cs.Keywords[i]
		if kw.Kind != KeywordApplication {
			continue
		}
		app := kw.Application
		if !app.Kind.inPlace() {
			continue
		}
		v.expandInPlace(scopeIdx, app)
	}
}

func (v *Validator) expandInPlace(scopeIdx int, app *Application) {
	loc := v.scopes[scopeIdx].Loc
	switch app.Kind {
	case AppAllOf, AppNot, AppThen, AppElse:
		child := v.pushChild(scopeIdx, app, loc, app.Schema, -1)
		v.expandScopes(child)
	case AppDependentSchema:
		child := v.pushChild(scopeIdx, app, loc, app.Schema, -1)
		v.expandScopes(child)
	case AppIf:
		child := v.pushChild(scopeIdx, app, loc, app.Schema, -1)
		v.expandScopes(child)
	case AppRef:
		target, err := v.index.MustFetch(app.RefURI)
		if err != nil {
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeReferenceNotFound, ReferenceURI: app.RefURI, Fragment: app.FragmentPointer})
			return
		}
		child := v.pushChild(scopeIdx, app, loc, target, -1)
		v.expandScopes(child)
	case AppRecursiveRef:
		base := v.dynamicBase(scopeIdx)
		target, err := v.index.MustFetch(base)
		if err != nil {
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeReferenceNotFound, ReferenceURI: base, Fragment: app.FragmentPointer})
			return
		}
		child := v.pushChild(scopeIdx, app, loc, target, -1)
		v.expandScopes(child)
	case AppAnyOf, AppOneOf:
		for _, sub := range app.branches() {
			child := v.pushChild(scopeIdx, app, loc, sub, -1)
			v.expandScopes(child)
		}
	}
}

// pushChild allocates a new arena Scope as a child of parentIdx, governed by
// app (nil for none) and targeting cs. childIdx is the push-order index for
// container-child occurrences, -1 for in-place ones.
func (v *Validator) pushChild(parentIdx int, app *Application, loc Location, cs *CompiledSchema, childIdx int) int {
	v.scopes = append(v.scopes, newScope(scopeParent{Index: parentIdx, App: app}, loc))
	i := len(v.scopes) - 1
	v.scopes[i].Schema = cs
	v.scopes[i].ChildIdx = childIdx
	return i
}

// dynamicBase resolves a $recursiveRef's base per the outermost-anchor rule:
// walk the full ancestor chain from scopeIdx to the root, and use the URI of
// the last (closest-to-root) scope whose schema carries RecursiveAnchor ==
// true. Falls back to scopeIdx's own canonical URI if no ancestor anchors.
func (v *Validator) dynamicBase(scopeIdx int) string {
	base := v.scopes[scopeIdx].Schema.URI
	for i := scopeIdx; ; {
		if v.scopes[i].Schema.RecursiveAnchor {
			base = v.scopes[i].Schema.URI
		}
		if v.scopes[i].Parent.Index < 0 {
			break
		}
		i = v.scopes[i].Parent.Index
	}
	return base
}

func internFor(cs *CompiledSchema, name string) (uint32, bool) {
	bit, ok := cs.InternTable[name]
	return bit, ok
}

// openContainerChild opens and fully expands a child scope claimed by a
// container-child applicator of ownerIdx.
func (v *Validator) openContainerChild(ownerIdx int, app *Application, loc Location, cs *CompiledSchema, childIdx int) {
	child := v.pushChild(ownerIdx, app, loc, cs, childIdx)
	v.expandScopes(child)
}

// PushProperty opens the child scopes for the next object property's value:
// first a throwaway propertyNames window (consulted only for Valid, never
// for Evaluated bits), then one root scope per governing scope's matching
// properties/patternProperties/additionalProperties/unevaluatedProperties
// applicator.
func (v *Validator) PushProperty(name string) {
	w := v.curWindow()
	v.runPropertyNames(w.Start, w.End, name)

	offset := len(v.scopes)
	idx := w.Count
	v.windows[len(v.windows)-1].Count++
	loc := w.Loc.Property(name, idx)

	for i := w.Start; i < w.End; i++ {
		if bit, ok := internFor(v.scopes[i].Schema, name); ok {
			v.scopes[i].SeenNames = v.scopes[i].SeenNames.Set(bit)
		}
	}

	matched := make([]bool, w.End-w.Start)
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication {
				continue
			}
			app := kw.Application
			switch app.Kind {
			case AppProperties:
				if app.PropertyName == name {
					matched[i-w.Start] = true
					v.openContainerChild(i, app, loc, app.Schema, idx)
				}
			case AppPatternProperties:
				if app.Pattern != nil && app.Pattern.MatchString(name) {
					matched[i-w.Start] = true
					v.openContainerChild(i, app, loc, app.Schema, idx)
				}
			}
		}
	}
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication || kw.Application.Kind != AppAdditionalProperties {
				continue
			}
			if !matched[i-w.Start] {
				matched[i-w.Start] = true
				v.openContainerChild(i, kw.Application, loc, kw.Application.Schema, idx)
			}
		}
	}
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication || kw.Application.Kind != AppUnevaluatedProperties {
				continue
			}
			if !matched[i-w.Start] {
				v.openContainerChild(i, kw.Application, loc, kw.Application.Schema, idx)
			}
		}
	}
	v.sealEvaluated(w.Start, w.End, idx, matched)

	v.windows = append(v.windows, windowFrame{Start: offset, End: len(v.scopes), Loc: loc})
}

// PushItem opens the child scopes for the next array item: one root scope
// per governing scope's matching prefixItems[idx]/items/additionalItems/
// contains/unevaluatedItems applicator.
func (v *Validator) PushItem() {
	w := v.curWindow()
	offset := len(v.scopes)
	idx := w.Count
	v.windows[len(v.windows)-1].Count++
	loc := w.Loc.Item(idx)

	matched := make([]bool, w.End-w.Start)
	hasIndexed := make([]bool, w.End-w.Start)
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication || kw.Application.Kind != AppItemsIndexed {
				continue
			}
			app := kw.Application
			hasIndexed[i-w.Start] = true
			if app.ItemIndex == idx {
				matched[i-w.Start] = true
				v.openContainerChild(i, app, loc, app.Schema, idx)
			}
		}
	}
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication {
				continue
			}
			app := kw.Application
			switch app.Kind {
			case AppItemsOpen:
				matched[i-w.Start] = true
				v.openContainerChild(i, app, loc, app.Schema, idx)
			case AppAdditionalItems:
				if hasIndexed[i-w.Start] && !matched[i-w.Start] {
					matched[i-w.Start] = true
					v.openContainerChild(i, app, loc, app.Schema, idx)
				}
			case AppContains:
				// Contains applies but never marks the item evaluated and
				// never propagates invalid; it only tallies a match count
				// on the owner array scope (unwindScope).
				v.openContainerChild(i, app, loc, app.Schema, idx)
			}
		}
	}
	for i := w.Start; i < w.End; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind != KeywordApplication || kw.Application.Kind != AppUnevaluatedItems {
				continue
			}
			if !matched[i-w.Start] {
				v.openContainerChild(i, kw.Application, loc, kw.Application.Schema, idx)
			}
		}
	}
	v.sealEvaluated(w.Start, w.End, idx, matched)

	v.windows = append(v.windows, windowFrame{Start: offset, End: len(v.scopes), Loc: loc})
}

// sealEvaluated appends this push's eager (non-speculative) evaluated bit to
// every governing scope in [start, end) at position idx.
func (v *Validator) sealEvaluated(start, end, idx int, matched []bool) {
	for i := start; i < end; i++ {
		for len(v.scopes[i].Evaluated) <= idx {
			v.scopes[i].Evaluated = append(v.scopes[i].Evaluated, false)
		}
		if matched[i-start] {
			v.scopes[i].Evaluated[idx] = true
		}
	}
}

// runPropertyNames evaluates every active propertyNames applicator across
// governing scopes [start, end) against name, in a throwaway window closed
// before returning. A failing propertyNames schema marks its owner invalid
// directly; it never contributes an Evaluated bit.
func (v *Validator) runPropertyNames(start, end int, name string) {
	type job struct {
		owner int
		app   *Application
	}
	var jobs []job
	for i := start; i < end; i++ {
		cs := v.scopes[i].Schema
		for k := range cs.Keywords {
			kw := &cs.Keywords[k]
			if kw.Kind == KeywordApplication && kw.Application.Kind == AppPropertyNames {
				jobs = append(jobs, job{i, kw.Application})
			}
		}
	}
	if len(jobs) == 0 {
		return
	}
	miniStart := len(v.scopes)
	for _, j := range jobs {
		child := v.pushChild(j.owner, j.app, v.scopes[j.owner].Loc, j.app.Schema, -1)
		v.expandScopes(child)
	}
	miniEnd := len(v.scopes)
	span := Span{Hashed: HashString(name)}
	for i := miniStart; i < miniEnd; i++ {
		v.checkValidations(i, TypeString, span, name, nil, nil)
	}
	v.closeWindow(miniStart, miniEnd)
	for i := miniStart; i < miniEnd; i++ {
		if v.scopes[i].Parent.Index < miniStart {
			v.unwindScope(v.scopes[i].Parent.Index, i)
		}
	}
}

// checkValidations runs every leaf Validation keyword of scopeIdx's own
// schema against the current instance value.
func (v *Validator) checkValidations(scopeIdx int, vt TypeSet, span Span, strVal string, numVal *Rat, length *int) {
	v.scopes[scopeIdx].ValueType = vt
	v.scopes[scopeIdx].TheSpan = span
	cs := v.scopes[scopeIdx].Schema
	if cs.Always != nil {
		return
	}
	for i := range cs.Keywords {
		kw := &cs.Keywords[i]
		if kw.Kind != KeywordValidation {
			continue
		}
		val := kw.Validation
		if !v.checkOne(scopeIdx, val, vt, span, strVal, numVal, length) {
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeInvalid, Validation: val})
		}
	}
}

func (v *Validator) checkOne(scopeIdx int, val *Validation, vt TypeSet, span Span, strVal string, numVal *Rat, length *int) bool {
	switch val.Kind {
	case ValType:
		if val.Types == 0 {
			return true
		}
		if vt == TypeNumber && val.Types&TypeInteger != 0 && numVal != nil && numVal.IsInt() {
			return true
		}
		return val.Types&vt != 0
	case ValConst:
		return span.Hashed == val.ConstHash
	case ValEnum:
		return containsHash(val.EnumHashes, span.Hashed)
	case ValMinimum:
		return numVal != nil && numVal.Cmp(val.Bound.Rat) >= 0
	case ValMaximum:
		return numVal != nil && numVal.Cmp(val.Bound.Rat) <= 0
	case ValExclusiveMinimum:
		return numVal != nil && numVal.Cmp(val.Bound.Rat) > 0
	case ValExclusiveMaximum:
		return numVal != nil && numVal.Cmp(val.Bound.Rat) < 0
	case ValMultipleOf:
		if numVal == nil || val.Bound.Sign() == 0 {
			return true
		}
		quotient := new(big.Rat).Quo(numVal.Rat, val.Bound.Rat)
		return quotient.IsInt()
	case ValMinLength:
		return runeLen(strVal) >= val.LengthBound
	case ValMaxLength:
		return runeLen(strVal) <= val.LengthBound
	case ValPattern:
		return val.Regex == nil || val.Regex.MatchString(strVal)
	case ValMinProperties:
		return length == nil || *length >= val.LengthBound
	case ValMaxProperties:
		return length == nil || *length <= val.LengthBound
	case ValMinItems:
		return length == nil || *length >= val.LengthBound
	case ValMaxItems:
		return length == nil || *length <= val.LengthBound
	case ValMinContains:
		return v.scopes[scopeIdx].ContainsCount >= val.LengthBound
	case ValMaxContains:
		return v.scopes[scopeIdx].ContainsCount <= val.LengthBound
	case ValRequired:
		return v.scopes[scopeIdx].SeenNames.And(val.RequiredMask).Equal(val.RequiredMask)
	case ValDependentRequired:
		sc := &v.scopes[scopeIdx]
		if sc.SeenNames.And(val.DependentIfMask).IsZero() {
			return true
		}
		return sc.SeenNames.And(val.DependentThenMask).Equal(val.DependentThenMask)
	case ValUniqueItems:
		return true // enforced incrementally in Validator.pop against Span hashes.
	case ValFormat:
		return v.checkFormat(val.FormatName, vt, strVal)
	default:
		return true
	}
}

// checkFormat reports whether a string value satisfies a named format,
// consulting custom formats before the built-in registry. Unknown formats
// and non-string values always pass: "format" only ever asserts when both
// assertFormat is enabled and a validator for the name is known to apply.
func (v *Validator) checkFormat(name string, vt TypeSet, strVal string) bool {
	if !v.assertFormat || vt != TypeString {
		return true
	}
	if fd, ok := v.customFormats[name]; ok {
		if fd.Type != "" && fd.Type != "string" {
			return true
		}
		return fd.Validate(strVal)
	}
	if fn, ok := Formats[name]; ok {
		return fn(strVal)
	}
	return true
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func (v *Validator) PopNull(span Span) { v.pop(TypeNull, span, "", nil, nil) }

func (v *Validator) PopBool(span Span, value bool) {
	v.pop(TypeBoolean, span, "", nil, nil)
}

func (v *Validator) PopNumeric(span Span, value *Rat) {
	v.pop(TypeNumber, span, "", value, nil)
}

func (v *Validator) PopStr(span Span, value string) {
	v.pop(TypeString, span, value, nil, nil)
}

func (v *Validator) PopObject(span Span) {
	n := v.windows[len(v.windows)-1].Count
	v.pop(TypeObject, span, "", nil, &n)
}

func (v *Validator) PopArray(span Span) {
	n := v.windows[len(v.windows)-1].Count
	v.pop(TypeArray, span, "", nil, &n)
}

// pop closes the window currently open: runs every scope's leaf
// validations, resolves the window's in-place tree bottom-up, then (unless
// this was the root document's own window) unwinds each of the window's
// root scopes into its owner in the now-current outer window, finally
// enforcing uniqueItems against that outer window if the value just closed
// was an array item.
func (v *Validator) pop(vt TypeSet, span Span, strVal string, numVal *Rat, length *int) {
	w := v.curWindow()
	for i := w.Start; i < w.End; i++ {
		v.checkValidations(i, vt, span, strVal, numVal, length)
	}
	v.closeWindow(w.Start, w.End)

	isItem := w.Loc.Kind == LocationItem
	v.windows = v.windows[:len(v.windows)-1]
	if len(v.windows) == 0 {
		return
	}
	for i := w.Start; i < w.End; i++ {
		if v.scopes[i].Parent.Index < w.Start {
			v.unwindScope(v.scopes[i].Parent.Index, i)
		}
	}
	if !isItem {
		return
	}
	outer := v.curWindow()
	for i := outer.Start; i < outer.End; i++ {
		if v.scopes[i].UniqueHashes == nil {
			continue
		}
		if _, dup := v.scopes[i].UniqueHashes[span.Hashed]; dup {
			v.recordLocal(i, Outcome{Kind: OutcomeInvalid, Validation: v.scopes[i].Schema.findValidation(ValUniqueItems)})
			continue
		}
		v.scopes[i].UniqueHashes[span.Hashed] = struct{}{}
	}
}

// closeWindow resolves every scope in [start, end) bottom-up: a scope's own
// children (those among [start, end) whose Parent.Index points within the
// window) are fully resolved and unwound into it before finishScope runs on
// it. Scopes whose Parent.Index falls outside the window are the window's
// roots, left open for the caller to unwind into the enclosing window.
func (v *Validator) closeWindow(start, end int) {
	children := map[int][]int{}
	var roots []int
	for i := start; i < end; i++ {
		p := v.scopes[i].Parent.Index
		if p >= start {
			children[p] = append(children[p], i)
		} else {
			roots = append(roots, i)
		}
	}
	var rec func(int)
	rec = func(idx int) {
		for _, c := range children[idx] {
			rec(c)
			v.unwindScope(idx, c)
		}
		v.finishScope(idx)
	}
	for _, r := range roots {
		rec(r)
	}
}

// finishScope resolves everything about scopeIdx that depends on its
// children having already unwound into it: anyOf/oneOf tallies, deferred
// unevaluated* outcomes, and (when the scope is valid so far) its retained
// annotations.
func (v *Validator) finishScope(scopeIdx int) {
	sc := &v.scopes[scopeIdx]

	if len(sc.ValidAnyOf) > 0 {
		matched := false
		for _, ok := range sc.ValidAnyOf {
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeAnyOfNotMatched, Fragment: "/anyOf"})
		}
	}

	if len(sc.ValidOneOf) > 0 {
		count := 0
		for _, ok := range sc.ValidOneOf {
			if ok {
				count++
			}
		}
		switch {
		case count == 0:
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeOneOfNotMatched, Fragment: "/oneOf"})
		case count > 1:
			v.recordLocal(scopeIdx, Outcome{Kind: OutcomeOneOfMultipleMatched, Fragment: "/oneOf"})
		}
	}

	for _, uo := range sc.OutcomesUnevaluated {
		evaluated := uo.ChildIdx < len(sc.Evaluated) && sc.Evaluated[uo.ChildIdx]
		if evaluated {
			continue
		}
		sc.Outcomes = append(sc.Outcomes, uo.Entry)
		if uo.Entry.Outcome.IsError() {
			sc.Invalid = true
		}
	}
	sc.OutcomesUnevaluated = nil

	if len(sc.ValidUnevaluated) > 0 {
		for i, ok := range sc.ValidUnevaluated {
			for len(sc.Evaluated) <= i {
				sc.Evaluated = append(sc.Evaluated, false)
			}
			if ok {
				sc.Evaluated[i] = true
			}
		}
		sc.ValidUnevaluated = nil
		for _, done := range sc.Evaluated {
			if !done {
				sc.Invalid = true
				break
			}
		}
	}

	if !sc.Invalid {
		for i := range sc.Schema.Keywords {
			kw := &sc.Schema.Keywords[i]
			if kw.Kind == KeywordAnnotation {
				v.recordLocal(scopeIdx, Outcome{Kind: OutcomeAnnotation, Annotation: kw.Annotation})
			}
		}
	}
}

// unwindScope folds child's verdict into parent, the handling class keyed
// by the applicator that opened child.
func (v *Validator) unwindScope(parentIdx, childIdx int) {
	app := v.scopes[childIdx].Parent.App
	if app == nil {
		return
	}
	invalid := v.scopes[childIdx].Invalid
	outcomes := v.scopes[childIdx].Outcomes
	evaluated := v.scopes[childIdx].Evaluated
	atIdx := v.scopes[childIdx].ChildIdx

	switch app.Kind {
	case AppAllOf, AppRef, AppRecursiveRef:
		// RequiredInPlace: always propagate invalid, always drain outcomes,
		// fold evaluated bits when the child itself is valid.
		v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
		if invalid {
			v.scopes[parentIdx].Invalid = true
		} else {
			v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
		}
	case AppNot:
		if !invalid {
			v.recordLocal(parentIdx, Outcome{Kind: OutcomeNotIsValid, Fragment: app.FragmentPointer})
		}
	case AppIf:
		valid := !invalid
		v.scopes[parentIdx].ValidIf = &valid
		if valid {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
		}
	case AppThen:
		cond := v.scopes[parentIdx].ValidIf
		if cond != nil && *cond {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			if invalid {
				v.scopes[parentIdx].Invalid = true
			} else {
				v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
			}
		}
	case AppElse:
		cond := v.scopes[parentIdx].ValidIf
		if cond != nil && !*cond {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			if invalid {
				v.scopes[parentIdx].Invalid = true
			} else {
				v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
			}
		}
	case AppDependentSchema:
		if v.scopes[parentIdx].SeenNames.Test(app.DependentIfIntern) {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			if invalid {
				v.scopes[parentIdx].Invalid = true
			} else {
				v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
			}
		}
	case AppAnyOf:
		v.scopes[parentIdx].ValidAnyOf = append(v.scopes[parentIdx].ValidAnyOf, !invalid)
		if !invalid {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
		}
	case AppOneOf:
		v.scopes[parentIdx].ValidOneOf = append(v.scopes[parentIdx].ValidOneOf, !invalid)
		if !invalid {
			v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
			v.scopes[parentIdx].Evaluated = orBits(v.scopes[parentIdx].Evaluated, evaluated)
		}
	case AppContains:
		if !invalid {
			v.scopes[parentIdx].ContainsCount++
		}
	case AppProperties, AppPatternProperties, AppAdditionalProperties, AppItemsIndexed, AppItemsOpen, AppAdditionalItems:
		// RequiredChild: Evaluated was already sealed eagerly at push time.
		v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
		if invalid {
			v.scopes[parentIdx].Invalid = true
		}
	case AppPropertyNames:
		v.scopes[parentIdx].Outcomes = append(v.scopes[parentIdx].Outcomes, outcomes...)
		if invalid {
			v.scopes[parentIdx].Invalid = true
		}
	case AppUnevaluatedProperties, AppUnevaluatedItems:
		for _, oe := range outcomes {
			v.scopes[parentIdx].OutcomesUnevaluated = append(v.scopes[parentIdx].OutcomesUnevaluated, unevaluatedOutcome{ChildIdx: atIdx, Entry: oe})
		}
		for len(v.scopes[parentIdx].ValidUnevaluated) < atIdx {
			v.scopes[parentIdx].ValidUnevaluated = append(v.scopes[parentIdx].ValidUnevaluated, false)
		}
		v.scopes[parentIdx].ValidUnevaluated = append(v.scopes[parentIdx].ValidUnevaluated, !invalid)
	}
}

// Prepare is a convenience for callers that hold only an Index and root URI:
// it allocates and returns a fresh Validator, equivalent to NewValidator.
func Prepare(index *Index, uri string) (*Validator, error) {
	return NewValidator(index, uri)
}

// scopeCount exposes arena size to white-box tests in this package that
// drive the Walker directly and want to assert on growth.
func (v *Validator) scopeCount() int { return len(v.scopes) }
