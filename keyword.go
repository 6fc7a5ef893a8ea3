package jsonschema

import "regexp"

// ApplicatorKind identifies which JSON Schema applicator an Application
// keyword represents. The set is closed and small; call sites are expected
// to switch over it exhaustively.
type ApplicatorKind int

const (
	AppAllOf ApplicatorKind = iota
	AppAnyOf
	AppOneOf
	AppNot
	AppIf
	AppThen
	AppElse
	AppDependentSchema
	AppRef
	AppRecursiveRef
	AppProperties
	AppPatternProperties
	AppAdditionalProperties
	AppPropertyNames
	AppUnevaluatedProperties
	AppItemsOpen
	AppItemsIndexed
	AppAdditionalItems
	AppContains
	AppUnevaluatedItems
	AppDef // never applied in place; a compile-time error if it ever appears as a parent applicator.
)

// inPlace reports whether the applicator is expanded eagerly against the
// same instance value as its parent, as opposed to waiting for a specific
// child (property or item) to arrive.
func (k ApplicatorKind) inPlace() bool {
	switch k {
	case AppAllOf, AppAnyOf, AppOneOf, AppNot, AppIf, AppThen, AppElse, AppDependentSchema, AppRef, AppRecursiveRef:
		return true
	default:
		return false
	}
}

// Application is a schema keyword whose value is another schema, applied
// either in place or against a specific child.
type Application struct {
	Kind ApplicatorKind

	// Schema is the target sub-schema for every kind except Ref/RecursiveRef,
	// whose targets are resolved dynamically through the Index, and
	// AnyOf/OneOf, whose branches are held in SubSchemas.
	Schema *CompiledSchema

	RefURI          string // AppRef: canonical URI to fetch from the Index.
	RecursiveRefURI string // AppRecursiveRef: the literal (possibly "#") $recursiveRef value.

	PropertyName string // AppProperties: the literal property name this occurrence matches.

	Pattern *regexp.Regexp // AppPatternProperties.

	DependentIfName   string // AppDependentSchema: the trigger property name.
	DependentIfIntern uint32

	ItemIndex int // AppItemsIndexed: the prefixItems/items[i] position this occurrence matches.

	// FragmentPointer is this applicator's contribution to a keywordLocation
	// chain, e.g. "/properties/a".
	FragmentPointer string

	// SubSchemas backs AppAnyOf/AppOneOf: one child scope is opened per
	// entry.
	SubSchemas []*CompiledSchema
}

// branches returns the AnyOf/OneOf applicator's member schemas.
func (a *Application) branches() []*CompiledSchema { return a.SubSchemas }

// ValidationKind identifies a leaf predicate kind.
type ValidationKind int

const (
	ValType ValidationKind = iota
	ValConst
	ValEnum
	ValMinimum
	ValMaximum
	ValExclusiveMinimum
	ValExclusiveMaximum
	ValMultipleOf
	ValMinLength
	ValMaxLength
	ValPattern
	ValRequired
	ValDependentRequired
	ValMinContains
	ValMaxContains
	ValMinProperties
	ValMaxProperties
	ValMinItems
	ValMaxItems
	ValUniqueItems
	ValFormat
	ValFalse
)

// Validation is a leaf predicate over the current value.
type Validation struct {
	Kind            ValidationKind
	FragmentPointer string

	Types TypeSet // ValType

	ConstHash  uint64   // ValConst
	EnumHashes []uint64 // ValEnum

	Bound *Rat // ValMinimum/Maximum/ExclusiveMinimum/ExclusiveMaximum/MultipleOf

	LengthBound int // Val{Min,Max}{Length,Items,Contains,Properties}

	Regex *regexp.Regexp // ValPattern

	RequiredMask InternSet // ValRequired

	DependentIfMask   InternSet // ValDependentRequired
	DependentThenMask InternSet // ValDependentRequired

	FormatName string // ValFormat
}

// AnnotationKind identifies a retained piece of schema-author metadata.
type AnnotationKind int

const (
	AnnoTitle AnnotationKind = iota
	AnnoDescription
	AnnoDefault
	AnnoDeprecated
	AnnoReadOnly
	AnnoWriteOnly
	AnnoExamples
	AnnoFormat
	AnnoContentEncoding
	AnnoContentMediaType
	AnnoContentSchema
)

// Annotation is schema-author metadata attached to the outcome list on
// success.
type Annotation struct {
	Kind  AnnotationKind
	Value any
}

// KeywordKind discriminates the three kinds of compiled Keyword.
type KeywordKind int

const (
	KeywordApplication KeywordKind = iota
	KeywordValidation
	KeywordAnnotation
)

// CompiledKeyword is one entry of a CompiledSchema's ordered keyword list.
type CompiledKeyword struct {
	Kind        KeywordKind
	Application *Application
	Validation  *Validation
	Annotation  *Annotation
}
