package jsonschema

import "fmt"

// CompiledSchema is the flat, canonical-URI-keyed representation of a
// compiled schema node that the Validator consumes. It carries no reference
// back to the Schema/Compiler types that produced it; a different compiler
// could hand the Validator the same shape.
type CompiledSchema struct {
	URI      string
	Keywords []CompiledKeyword

	// InternTable assigns a stable bit position to every property name this
	// schema's Required/DependentRequired/DependentSchemas keywords
	// reference. Properties names are not interned; they match by string.
	InternTable map[string]uint32
	InternNames []string

	// RecursiveAnchor marks this schema as eligible as a $recursiveRef
	// dynamic recursion base.
	RecursiveAnchor bool

	// Always is non-nil for boolean schemas (`true`/`false`); nil means an
	// ordinary object schema.
	Always *bool
}

// findValidation returns the schema's Validation keyword of the given kind,
// or nil. Used where an outcome needs to reference the keyword that
// produced it but the dispatch site does not already hold the pointer
// (UniqueItems, enforced in Validator.pop rather than checkValidations).
func (cs *CompiledSchema) findValidation(kind ValidationKind) *Validation {
	for i := range cs.Keywords {
		kw := &cs.Keywords[i]
		if kw.Kind == KeywordValidation && kw.Validation.Kind == kind {
			return kw.Validation
		}
	}
	return nil
}

// ErrSchemaNotFound is wrapped into the error returned by Index.MustFetch.
var ErrSchemaNotFound = fmt.Errorf("schema not found")

// Index is a canonical-URI-keyed lookup of compiled schemas, used to
// resolve $ref and $recursiveRef during scope expansion. It is read-only
// during validation and safe to share across concurrent Validators.
type Index struct {
	schemas map[string]*CompiledSchema
}

// NewIndex allocates an empty Index.
func NewIndex() *Index {
	return &Index{schemas: make(map[string]*CompiledSchema)}
}

// Add registers a compiled schema under its own canonical URI.
func (ix *Index) Add(cs *CompiledSchema) {
	ix.schemas[cs.URI] = cs
}

// Fetch looks up a schema by canonical URI.
func (ix *Index) Fetch(uri string) (*CompiledSchema, bool) {
	cs, ok := ix.schemas[uri]
	return cs, ok
}

// MustFetch looks up a schema by canonical URI, returning an error wrapping
// ErrSchemaNotFound if absent.
func (ix *Index) MustFetch(uri string) (*CompiledSchema, error) {
	cs, ok := ix.schemas[uri]
	if !ok {
		return nil, fmt.Errorf("jsonschema: resolving %q: %w", uri, ErrSchemaNotFound)
	}
	return cs, nil
}
