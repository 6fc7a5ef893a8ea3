// Package jsonschema implements a streaming JSON Schema validator for
// drafts 2019-09 and 2020-12, including recursive references, the
// unevaluated* keywords, and the "basic" output format. A Compiler lowers a
// parsed schema document into a flat Index; a Validator then consumes a
// depth-first walk of a JSON (or YAML, via the walk package) instance and
// evaluates every applicable schema in a single pass.
//
// Credit to https://github.com/santhosh-tekuri/jsonschema for format validators.
package jsonschema
