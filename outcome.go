package jsonschema

import "fmt"

// OutcomeKind discriminates the tagged Outcome variants.
type OutcomeKind int

const (
	OutcomeInvalid OutcomeKind = iota
	OutcomeNotIsValid
	OutcomeAnyOfNotMatched
	OutcomeOneOfNotMatched
	OutcomeOneOfMultipleMatched
	OutcomeReferenceNotFound
	OutcomeAnnotation
)

// Outcome is a validation error or a retained annotation produced while
// evaluating a Scope.
type Outcome struct {
	Kind         OutcomeKind
	Validation   *Validation // OutcomeInvalid
	Annotation   *Annotation // OutcomeAnnotation
	ReferenceURI string      // OutcomeReferenceNotFound

	// Fragment is this outcome's own contribution to keywordLocation, e.g.
	// "/not" or "/anyOf". Unused for OutcomeInvalid, which takes its
	// fragment from Validation.FragmentPointer instead.
	Fragment string
}

// IsError reports whether the outcome counts as a validation failure.
// Every kind except OutcomeAnnotation is an error.
func (o Outcome) IsError() bool { return o.Kind != OutcomeAnnotation }

// keywordFragment returns o's own contribution to a keywordLocation chain.
func (o Outcome) keywordFragment() string {
	if o.Kind == OutcomeInvalid {
		if o.Validation != nil {
			return o.Validation.FragmentPointer
		}
		return ""
	}
	return o.Fragment
}

func describeOutcome(o Outcome) string {
	switch o.Kind {
	case OutcomeInvalid:
		return describeValidation(o.Validation)
	case OutcomeNotIsValid:
		return "value must not match the 'not' schema"
	case OutcomeAnyOfNotMatched:
		return "value does not match any schema in 'anyOf'"
	case OutcomeOneOfNotMatched:
		return "value does not match any schema in 'oneOf'"
	case OutcomeOneOfMultipleMatched:
		return "value matches more than one schema in 'oneOf'"
	case OutcomeReferenceNotFound:
		return fmt.Sprintf("reference %q could not be resolved", o.ReferenceURI)
	default:
		return "validation failed"
	}
}

func describeValidation(v *Validation) string {
	if v == nil {
		return "validation failed"
	}
	switch v.Kind {
	case ValType:
		return "value does not match the required type"
	case ValConst:
		return "value does not equal the constant defined by 'const'"
	case ValEnum:
		return "value does not match any member of 'enum'"
	case ValMinimum:
		return fmt.Sprintf("value is less than the minimum %s", FormatRat(v.Bound))
	case ValMaximum:
		return fmt.Sprintf("value is greater than the maximum %s", FormatRat(v.Bound))
	case ValExclusiveMinimum:
		return fmt.Sprintf("value is not strictly greater than %s", FormatRat(v.Bound))
	case ValExclusiveMaximum:
		return fmt.Sprintf("value is not strictly less than %s", FormatRat(v.Bound))
	case ValMultipleOf:
		return fmt.Sprintf("value is not a multiple of %s", FormatRat(v.Bound))
	case ValMinLength:
		return fmt.Sprintf("string is shorter than the minimum length %d", v.LengthBound)
	case ValMaxLength:
		return fmt.Sprintf("string is longer than the maximum length %d", v.LengthBound)
	case ValPattern:
		return "string does not match the required pattern"
	case ValRequired:
		return "object is missing a required property"
	case ValDependentRequired:
		return "object is missing a dependent required property"
	case ValMinContains:
		return fmt.Sprintf("array contains fewer than %d matching items", v.LengthBound)
	case ValMaxContains:
		return fmt.Sprintf("array contains more than %d matching items", v.LengthBound)
	case ValMinProperties:
		return fmt.Sprintf("object has fewer than %d properties", v.LengthBound)
	case ValMaxProperties:
		return fmt.Sprintf("object has more than %d properties", v.LengthBound)
	case ValMinItems:
		return fmt.Sprintf("array has fewer than %d items", v.LengthBound)
	case ValMaxItems:
		return fmt.Sprintf("array has more than %d items", v.LengthBound)
	case ValUniqueItems:
		return "array items are not unique"
	case ValFalse:
		return "schema is 'false' and never validates"
	default:
		return "validation failed"
	}
}

// Context describes where an Outcome arose. Two shapes are supported:
// FullContext for diagnostic builds that need the full location chain, and
// SpanContext for throughput-sensitive callers that only need Invalid().
type Context interface {
	Span() Span
	BasicOutputEntry(o Outcome) BasicOutputError
}

// FullContext carries everything needed to render a "basic" output error
// entry.
type FullContext struct {
	InstancePointer string
	CanonicalURI    string
	KeywordLocation string
	TheSpan         Span
}

// Span implements Context.
func (c FullContext) Span() Span { return c.TheSpan }

// BasicOutputEntry implements Context.
func (c FullContext) BasicOutputEntry(o Outcome) BasicOutputError {
	return BasicOutputError{
		KeywordLocation:         c.KeywordLocation,
		InstanceLocation:        c.InstancePointer,
		AbsoluteKeywordLocation: c.CanonicalURI + "#" + c.KeywordLocation,
		Error:                   describeOutcome(o),
	}
}

// SpanContext is the minimal, allocation-light Context: it carries only the
// Span, enough to support Invalid() without building location strings.
type SpanContext struct {
	TheSpan Span
}

// Span implements Context.
func (c SpanContext) Span() Span { return c.TheSpan }

// BasicOutputEntry implements Context, omitting location information.
func (c SpanContext) BasicOutputEntry(o Outcome) BasicOutputError {
	return BasicOutputError{Error: describeOutcome(o)}
}

// OutcomeEntry pairs an Outcome with the Context describing where it arose.
type OutcomeEntry struct {
	Outcome Outcome
	Context Context
}

// BasicOutputError is one entry of a "basic" format output's error list.
type BasicOutputError struct {
	KeywordLocation         string `json:"keywordLocation"`
	InstanceLocation        string `json:"instanceLocation"`
	AbsoluteKeywordLocation string `json:"absoluteKeywordLocation,omitempty"`
	Error                   string `json:"error"`
}

// BasicOutput is the JSON Schema "basic" output format: a verdict plus a
// flat list of error entries.
type BasicOutput struct {
	Valid  bool               `json:"valid"`
	Errors []BasicOutputError `json:"errors,omitempty"`
}

// BuildBasicOutput renders outcomes (as recorded by a Validator) into the
// "basic" output format, filtering out annotations.
func BuildBasicOutput(valid bool, outcomes []OutcomeEntry) BasicOutput {
	out := BasicOutput{Valid: valid}
	for _, oe := range outcomes {
		if oe.Outcome.IsError() {
			out.Errors = append(out.Errors, oe.Context.BasicOutputEntry(oe.Outcome))
		}
	}
	return out
}
