package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooObjectSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$id": "example-schema",
	"type": "object",
	"title": "foo object schema",
	"properties": {
	  "foo": {
		"title": "foo's title",
		"description": "foo's description",
		"type": "string",
		"pattern": "^foo ",
		"minLength": 10
	  }
	},
	"required": [ "foo" ],
	"additionalProperties": false
}`

// driveValue replays a decoded JSON value's depth-first event stream into v,
// mirroring what package walk would do for a document read from a io.Reader.
func driveValue(v *Validator, val interface{}) {
	switch x := val.(type) {
	case map[string]interface{}:
		for name, child := range x {
			v.PushProperty(name)
			driveValue(v, child)
		}
		v.PopObject(Span{Hashed: 0})
	case []interface{}:
		for _, child := range x {
			v.PushItem()
			driveValue(v, child)
		}
		v.PopArray(Span{Hashed: 0})
	case string:
		v.PopStr(Span{Hashed: HashString(x)}, x)
	case float64:
		r := NewRat(x)
		v.PopNumeric(Span{Hashed: HashNumber(r)}, r)
	case bool:
		v.PopBool(Span{Hashed: HashBool(x)}, x)
	case nil:
		v.PopNull(Span{Hashed: HashNull()})
	}
}

func validate(t *testing.T, v *Validator, instance interface{}) bool {
	t.Helper()
	driveValue(v, instance)
	return !v.Invalid()
}

func TestValidationOutputs(t *testing.T) {
	compiler := NewCompiler()

	testCases := []struct {
		description   string
		instance      interface{}
		expectedValid bool
	}{
		{
			description: "valid input matching schema requirements",
			instance: map[string]interface{}{
				"foo": "foo bar baz baz",
			},
			expectedValid: true,
		},
		{
			description:   "input missing required property 'foo'",
			instance:      map[string]interface{}{},
			expectedValid: false,
		},
		{
			description: "invalid additional property",
			instance: map[string]interface{}{
				"foo": "foo valid ok", "extra": "data",
			},
			expectedValid: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			v, err := compiler.CompileValidator([]byte(fooObjectSchema))
			require.NoError(t, err)
			assert.Equal(t, tc.expectedValid, validate(t, v, tc.instance))
		})
	}
}

func TestBasicOutputReportsErrorLocations(t *testing.T) {
	compiler := NewCompiler()
	v, err := compiler.CompileValidator([]byte(fooObjectSchema))
	require.NoError(t, err)

	driveValue(v, map[string]interface{}{})
	out := v.BasicOutput()

	assert.False(t, out.Valid)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "", out.Errors[0].InstanceLocation)
}

func TestEvaluationErrorLocalize(t *testing.T) {
	bundle, err := GetI18n()
	require.NoError(t, err)

	evalErr := NewEvaluationError("pattern", "invalid_pattern", "pattern {pattern} is not a valid regular expression: {error}", map[string]any{
		"pattern": "(",
		"error":   "missing closing )",
	})

	en := bundle.NewLocalizer("en")
	assert.Contains(t, evalErr.Localize(en), "(")

	zh := bundle.NewLocalizer("zh-Hans")
	assert.Contains(t, evalErr.Localize(zh), "正则表达式")
}

// CompileBatch defers reference resolution and, unlike Compile, never runs
// validateRegexSyntax up front, so a malformed pattern reaches Build's
// lowering pass. Build must still surface it instead of discarding it.
func TestBuildReportsInvalidPatternFromBatch(t *testing.T) {
	compiler := NewCompiler()
	schemas, err := compiler.CompileBatch(map[string][]byte{
		"bad-pattern": []byte(`{"pattern": "("}`),
	})
	require.NoError(t, err)

	_, _, buildErr := compiler.Build(schemas["bad-pattern"])
	require.Error(t, buildErr)

	evalErr, ok := buildErr.(*EvaluationError)
	require.True(t, ok, "expected *EvaluationError, got %T", buildErr)
	assert.Equal(t, "invalid_pattern", evalErr.Code)
}
