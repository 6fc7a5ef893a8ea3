package jsonschema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/kaptinlin/jsonpointer"
)

// fragment builds a JSON-Pointer-escaped keyword-location fragment from
// literal reference tokens (property/pattern/trigger names may themselves
// contain "/" or "~").
func fragment(tokens ...string) string {
	return jsonpointer.Format(tokens...)
}

// builder lowers a Schema tree (as parsed and reference-resolved by
// Compiler.Compile) into the flat, canonical-URI-keyed CompiledSchema/Index
// shape the streaming Validator consumes.
type builder struct {
	index    *Index
	compiled map[*Schema]*CompiledSchema
	uris     map[*Schema]string
	seq      int
	err      error // first regex-compile failure encountered while lowering, if any
}

// Build lowers root (and every schema it transitively reaches through
// allOf/anyOf/$ref/properties/... and $defs) into an Index, returning the
// canonical URI the Validator should start from.
func (c *Compiler) Build(root *Schema) (*Index, string, error) {
	if root == nil {
		return nil, "", fmt.Errorf("jsonschema: cannot build a nil schema")
	}
	b := &builder{
		index:    NewIndex(),
		compiled: make(map[*Schema]*CompiledSchema),
		uris:     make(map[*Schema]string),
	}
	cs := b.compileNode(root)
	if b.err != nil {
		return nil, "", b.err
	}
	return b.index, cs.URI, nil
}

// CompileValidator parses, compiles, and lowers a JSON Schema document in
// one step, returning a Validator ready to drive from a Walker's events.
func (c *Compiler) CompileValidator(jsonSchema []byte, uris ...string) (*Validator, error) {
	schema, err := c.Compile(jsonSchema, uris...)
	if err != nil {
		return nil, err
	}
	index, rootURI, err := c.Build(schema)
	if err != nil {
		return nil, err
	}
	v, err := NewValidator(index, rootURI)
	if err != nil {
		return nil, err
	}
	c.customFormatsRW.RLock()
	custom := make(map[string]*FormatDef, len(c.customFormats))
	for k, fd := range c.customFormats {
		custom[k] = fd
	}
	c.customFormatsRW.RUnlock()
	return v.WithFormatAssertion(c.AssertFormat, custom), nil
}

// uriFor returns s's canonical URI, synthesizing a stable one (in visitation
// order) for schema nodes that never carried their own $id.
func (b *builder) uriFor(s *Schema) string {
	if uri, ok := b.uris[s]; ok {
		return uri
	}
	ownID := s.uri != ""
	uri := s.GetSchemaURI()
	if !ownID && s.parent != nil {
		// Nodes without their own $id share the document's base URI; give
		// them a distinguishable synthetic one so Index.Add never collides.
		b.seq++
		uri = fmt.Sprintf("%s#synthetic-%d", uri, b.seq)
	}
	b.uris[s] = uri
	return uri
}

// compileNode returns s's CompiledSchema, compiling it (and registering it
// in the Index before recursing into children) on first visit so that
// $ref/$recursiveRef cycles terminate.
func (b *builder) compileNode(s *Schema) *CompiledSchema {
	if cs, ok := b.compiled[s]; ok {
		return cs
	}
	cs := &CompiledSchema{URI: b.uriFor(s)}
	b.compiled[s] = cs
	b.index.Add(cs)

	if s.Boolean != nil {
		v := *s.Boolean
		cs.Always = &v
		return cs
	}

	cs.RecursiveAnchor = s.RecursiveAnchor != nil && *s.RecursiveAnchor

	var kws []CompiledKeyword
	appendKw := func(kw CompiledKeyword) { kws = append(kws, kw) }

	if len(s.Type) > 0 {
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValType, Types: typeSetFromStrings(s.Type), FragmentPointer: "/type",
		}})
	}
	if s.Const != nil && s.Const.IsSet {
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValConst, ConstHash: hashAnyValue(s.Const.Value), FragmentPointer: "/const",
		}})
	}
	if len(s.Enum) > 0 {
		hashes := make([]uint64, len(s.Enum))
		for i, v := range s.Enum {
			hashes[i] = hashAnyValue(v)
		}
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValEnum, EnumHashes: hashes, FragmentPointer: "/enum",
		}})
	}

	if s.Minimum != nil {
		appendKw(bound(ValMinimum, s.Minimum, "/minimum"))
	}
	if s.Maximum != nil {
		appendKw(bound(ValMaximum, s.Maximum, "/maximum"))
	}
	if s.ExclusiveMinimum != nil {
		appendKw(bound(ValExclusiveMinimum, s.ExclusiveMinimum, "/exclusiveMinimum"))
	}
	if s.ExclusiveMaximum != nil {
		appendKw(bound(ValExclusiveMaximum, s.ExclusiveMaximum, "/exclusiveMaximum"))
	}
	if s.MultipleOf != nil {
		appendKw(bound(ValMultipleOf, s.MultipleOf, "/multipleOf"))
	}

	if s.MinLength != nil {
		appendKw(lengthBound(ValMinLength, *s.MinLength, "/minLength"))
	}
	if s.MaxLength != nil {
		appendKw(lengthBound(ValMaxLength, *s.MaxLength, "/maxLength"))
	}
	if s.Pattern != nil {
		re := b.compilePattern(*s.Pattern, "pattern")
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValPattern, Regex: re, FragmentPointer: "/pattern",
		}})
	}

	for _, sub := range s.AllOf {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppAllOf, Schema: b.compileNode(sub), FragmentPointer: "/allOf",
		}})
	}
	if len(s.AnyOf) > 0 {
		subs := make([]*CompiledSchema, len(s.AnyOf))
		for i, sub := range s.AnyOf {
			subs[i] = b.compileNode(sub)
		}
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppAnyOf, SubSchemas: subs, FragmentPointer: "/anyOf",
		}})
	}
	if len(s.OneOf) > 0 {
		subs := make([]*CompiledSchema, len(s.OneOf))
		for i, sub := range s.OneOf {
			subs[i] = b.compileNode(sub)
		}
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppOneOf, SubSchemas: subs, FragmentPointer: "/oneOf",
		}})
	}
	if s.Not != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppNot, Schema: b.compileNode(s.Not), FragmentPointer: "/not",
		}})
	}
	if s.If != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppIf, Schema: b.compileNode(s.If), FragmentPointer: "/if",
		}})
		if s.Then != nil {
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppThen, Schema: b.compileNode(s.Then), FragmentPointer: "/then",
			}})
		}
		if s.Else != nil {
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppElse, Schema: b.compileNode(s.Else), FragmentPointer: "/else",
			}})
		}
	}
	if len(s.DependentSchemas) > 0 {
		for _, name := range sortedKeys(s.DependentSchemas) {
			sub := s.DependentSchemas[name]
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind:              AppDependentSchema,
				Schema:            b.compileNode(sub),
				DependentIfName:   name,
				DependentIfIntern: assignBit(cs, name),
				FragmentPointer:   fragment("dependentSchemas", name),
			}})
		}
	}

	if s.Ref != "" {
		refURI := ""
		if s.ResolvedRef != nil {
			refURI = b.compileNode(s.ResolvedRef).URI
		} else {
			refURI = s.Ref
		}
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppRef, RefURI: refURI, FragmentPointer: "/$ref",
		}})
	}
	if s.RecursiveRef != "" {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppRecursiveRef, RecursiveRefURI: s.RecursiveRef, FragmentPointer: "/$recursiveRef",
		}})
	}

	if s.Properties != nil {
		for _, name := range sortedKeys(map[string]*Schema(*s.Properties)) {
			sub := (*s.Properties)[name]
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppProperties, Schema: b.compileNode(sub), PropertyName: name,
				FragmentPointer: fragment("properties", name),
			}})
		}
	}
	if s.PatternProperties != nil {
		for _, pattern := range sortedKeys(map[string]*Schema(*s.PatternProperties)) {
			sub := (*s.PatternProperties)[pattern]
			re := b.compilePattern(pattern, "patternProperties")
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppPatternProperties, Schema: b.compileNode(sub), Pattern: re,
				FragmentPointer: fragment("patternProperties", pattern),
			}})
		}
	}
	if s.AdditionalProperties != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppAdditionalProperties, Schema: b.compileNode(s.AdditionalProperties),
			FragmentPointer: "/additionalProperties",
		}})
	}
	if s.PropertyNames != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppPropertyNames, Schema: b.compileNode(s.PropertyNames), FragmentPointer: "/propertyNames",
		}})
	}
	if s.UnevaluatedProperties != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppUnevaluatedProperties, Schema: b.compileNode(s.UnevaluatedProperties),
			FragmentPointer: "/unevaluatedProperties",
		}})
	}

	if len(s.PrefixItems) > 0 {
		for i, sub := range s.PrefixItems {
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppItemsIndexed, Schema: b.compileNode(sub), ItemIndex: i,
				FragmentPointer: fragment("prefixItems", fmt.Sprint(i)),
			}})
		}
		if s.Items != nil {
			appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
				Kind: AppAdditionalItems, Schema: b.compileNode(s.Items), FragmentPointer: "/items",
			}})
		}
	} else if s.Items != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppItemsOpen, Schema: b.compileNode(s.Items), FragmentPointer: "/items",
		}})
	}
	if s.Contains != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppContains, Schema: b.compileNode(s.Contains), FragmentPointer: "/contains",
		}})
		minC := 1
		if s.MinContains != nil {
			minC = int(*s.MinContains)
		}
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValMinContains, LengthBound: minC, FragmentPointer: "/minContains",
		}})
		if s.MaxContains != nil {
			appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
				Kind: ValMaxContains, LengthBound: int(*s.MaxContains), FragmentPointer: "/maxContains",
			}})
		}
	}
	if s.UnevaluatedItems != nil {
		appendKw(CompiledKeyword{Kind: KeywordApplication, Application: &Application{
			Kind: AppUnevaluatedItems, Schema: b.compileNode(s.UnevaluatedItems), FragmentPointer: "/unevaluatedItems",
		}})
	}

	if len(s.Required) > 0 {
		var mask InternSet
		for _, name := range s.Required {
			mask = mask.Set(assignBit(cs, name))
		}
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValRequired, RequiredMask: mask, FragmentPointer: "/required",
		}})
	}
	if len(s.DependentRequired) > 0 {
		for _, trigger := range sortedKeys(s.DependentRequired) {
			deps := s.DependentRequired[trigger]
			var ifMask, thenMask InternSet
			ifMask = ifMask.Set(assignBit(cs, trigger))
			for _, name := range deps {
				thenMask = thenMask.Set(assignBit(cs, name))
			}
			appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
				Kind: ValDependentRequired, DependentIfMask: ifMask, DependentThenMask: thenMask,
				FragmentPointer: fragment("dependentRequired", trigger),
			}})
		}
	}

	if s.MinProperties != nil {
		appendKw(lengthBound(ValMinProperties, *s.MinProperties, "/minProperties"))
	}
	if s.MaxProperties != nil {
		appendKw(lengthBound(ValMaxProperties, *s.MaxProperties, "/maxProperties"))
	}
	if s.MinItems != nil {
		appendKw(lengthBound(ValMinItems, *s.MinItems, "/minItems"))
	}
	if s.MaxItems != nil {
		appendKw(lengthBound(ValMaxItems, *s.MaxItems, "/maxItems"))
	}
	if s.UniqueItems != nil && *s.UniqueItems {
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValUniqueItems, FragmentPointer: "/uniqueItems",
		}})
	}

	if s.Title != nil {
		appendKw(annotation(AnnoTitle, *s.Title))
	}
	if s.Description != nil {
		appendKw(annotation(AnnoDescription, *s.Description))
	}
	if s.Default != nil {
		appendKw(annotation(AnnoDefault, s.Default))
	}
	if s.Deprecated != nil {
		appendKw(annotation(AnnoDeprecated, *s.Deprecated))
	}
	if s.ReadOnly != nil {
		appendKw(annotation(AnnoReadOnly, *s.ReadOnly))
	}
	if s.WriteOnly != nil {
		appendKw(annotation(AnnoWriteOnly, *s.WriteOnly))
	}
	if len(s.Examples) > 0 {
		appendKw(annotation(AnnoExamples, s.Examples))
	}
	if s.Format != nil {
		appendKw(annotation(AnnoFormat, *s.Format))
		appendKw(CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{
			Kind: ValFormat, FormatName: *s.Format, FragmentPointer: "/format",
		}})
	}
	b.compileContent(s, cs, appendKw)

	cs.Keywords = kws
	return cs
}

// compilePattern compiles a regex pattern, recording the first failure
// encountered while lowering as an *EvaluationError rather than silently
// discarding it (Compiler.CompileBatch skips the upfront regex-syntax pass
// that Compiler.Compile runs, so an invalid pattern can still reach here).
func (b *builder) compilePattern(pattern, keyword string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil && b.err == nil {
		b.err = NewEvaluationError(keyword, "invalid_pattern", "pattern {pattern} is not a valid regular expression: {error}", map[string]any{
			"pattern": pattern,
			"error":   err.Error(),
		})
	}
	return re
}

func bound(kind ValidationKind, r *Rat, frag string) CompiledKeyword {
	return CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{Kind: kind, Bound: r, FragmentPointer: frag}}
}

func lengthBound(kind ValidationKind, f float64, frag string) CompiledKeyword {
	return CompiledKeyword{Kind: KeywordValidation, Validation: &Validation{Kind: kind, LengthBound: int(f), FragmentPointer: frag}}
}

func annotation(kind AnnotationKind, value any) CompiledKeyword {
	return CompiledKeyword{Kind: KeywordAnnotation, Annotation: &Annotation{Kind: kind, Value: value}}
}

// assignBit interns name into cs's property-name bitset, reusing the bit
// already assigned if name was seen before (e.g. required and
// dependentRequired sharing a trigger name).
func assignBit(cs *CompiledSchema, name string) uint32 {
	if cs.InternTable == nil {
		cs.InternTable = make(map[string]uint32)
	}
	if bit, ok := cs.InternTable[name]; ok {
		return bit
	}
	bit := uint32(len(cs.InternTable))
	cs.InternTable[name] = bit
	cs.InternNames = append(cs.InternNames, name)
	return bit
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// hashAnyValue computes the const/enum content hash of an arbitrary decoded
// JSON value (nil, bool, float64/Rat, string, []any, map[string]any),
// canonicalizing the same way the streaming engine hashes instance values so
// an instance and a const/enum member compare equal iff they are JSON-equal.
func hashAnyValue(v any) uint64 {
	switch t := v.(type) {
	case nil:
		return HashNull()
	case bool:
		return HashBool(t)
	case string:
		return HashString(t)
	case float64:
		return HashNumber(NewRat(t))
	case *Rat:
		return HashNumber(t)
	case []any:
		children := make([]uint64, len(t))
		for i, c := range t {
			children[i] = hashAnyValue(c)
		}
		return CombineArray(children)
	case map[string]any:
		children := make([]ChildHash, 0, len(t))
		for k, c := range t {
			children = append(children, ChildHash{Name: k, Hash: hashAnyValue(c)})
		}
		return CombineObject(children)
	default:
		return HashString(fmt.Sprint(t))
	}
}
