// Package walk drives a depth-first event stream from a decoded JSON (or
// YAML) document into a jsonschema.Walker, computing the byte-span and
// content hash each event carries.
package walk

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"

	schema "github.com/corvuscore/streamschema"
)

// frame tracks one open container (object or array) while walking, so the
// container's own Span.Hashed can be folded from its children once closed.
type frame struct {
	isObject    bool
	begin       int64
	arrayHashes []uint64
	objHashes   []schema.ChildHash
	pendingKey  string
}

// JSONWalker drives push_property/push_item/pop_* events for a single JSON
// document read from an io.Reader, built on jsontext.Decoder so that exact
// byte offsets are available for every value without re-scanning.
type JSONWalker struct {
	dec   *jsontext.Decoder
	w     schema.Walker
	stack []frame
}

// NewJSONWalker returns a walker that reads JSON tokens from r and drives w.
func NewJSONWalker(r io.Reader, w schema.Walker) *JSONWalker {
	return &JSONWalker{dec: jsontext.NewDecoder(r), w: w}
}

// Walk consumes exactly one JSON value from the reader, driving w's
// Push*/Pop* methods depth-first, and returns any decode error encountered.
func (jw *JSONWalker) Walk() error {
	if err := jw.walkValue(); err != nil {
		return err
	}
	if len(jw.stack) != 0 {
		return errors.New("walk: unbalanced container nesting")
	}
	return nil
}

// walkValue reads and dispatches exactly one JSON value (object, array, or
// scalar), recursing for containers.
func (jw *JSONWalker) walkValue() error {
	begin := jw.dec.InputOffset()
	tok, err := jw.dec.ReadToken()
	if err != nil {
		return err
	}

	switch tok.Kind() {
	case '{':
		jw.stack = append(jw.stack, frame{isObject: true, begin: begin})
		return jw.walkObjectBody()
	case '[':
		jw.stack = append(jw.stack, frame{isObject: false, begin: begin})
		return jw.walkArrayBody()
	case '"':
		s := tok.String()
		span := schema.Span{Begin: begin, End: jw.dec.InputOffset(), Hashed: schema.HashString(s)}
		jw.recordChildHash(span.Hashed)
		jw.w.PopStr(span, s)
		return nil
	case '0':
		f := tok.Float()
		r := schema.NewRat(f)
		h := schema.HashNumber(r)
		span := schema.Span{Begin: begin, End: jw.dec.InputOffset(), Hashed: h}
		jw.recordChildHash(h)
		jw.w.PopNumeric(span, r)
		return nil
	case 't', 'f':
		b := tok.Bool()
		h := schema.HashBool(b)
		span := schema.Span{Begin: begin, End: jw.dec.InputOffset(), Hashed: h}
		jw.recordChildHash(h)
		jw.w.PopBool(span, b)
		return nil
	case 'n':
		h := schema.HashNull()
		span := schema.Span{Begin: begin, End: jw.dec.InputOffset(), Hashed: h}
		jw.recordChildHash(h)
		jw.w.PopNull(span)
		return nil
	default:
		return fmt.Errorf("walk: unexpected token kind %q", tok.Kind())
	}
}

// walkObjectBody reads name/value pairs until the matching '}', pushing a
// property event before each value and closing out the object's own pop
// event (with a content hash folded from its members) once done.
func (jw *JSONWalker) walkObjectBody() error {
	for jw.dec.PeekKind() != '}' {
		keyTok, err := jw.dec.ReadToken()
		if err != nil {
			return err
		}
		name := keyTok.String()
		top := &jw.stack[len(jw.stack)-1]
		top.pendingKey = name

		jw.w.PushProperty(name)
		if err := jw.walkValue(); err != nil {
			return err
		}
	}

	return jw.closeCurrentObject()
}

// walkArrayBody reads elements until the matching ']', pushing an item event
// before each and closing out the array's own pop event once done.
func (jw *JSONWalker) walkArrayBody() error {
	for jw.dec.PeekKind() != ']' {
		jw.w.PushItem()
		if err := jw.walkValue(); err != nil {
			return err
		}
	}
	return jw.closeCurrentArray()
}

func (jw *JSONWalker) closeCurrentObject() error {
	if _, err := jw.dec.ReadToken(); err != nil { // consume '}'
		return err
	}
	n := len(jw.stack)
	top := jw.stack[n-1]
	jw.stack = jw.stack[:n-1]

	h := schema.CombineObject(top.objHashes)
	span := schema.Span{Begin: top.begin, End: jw.dec.InputOffset(), Hashed: h}
	jw.recordChildHash(h)
	jw.w.PopObject(span)
	return nil
}

func (jw *JSONWalker) closeCurrentArray() error {
	if _, err := jw.dec.ReadToken(); err != nil { // consume ']'
		return err
	}
	n := len(jw.stack)
	top := jw.stack[n-1]
	jw.stack = jw.stack[:n-1]

	h := schema.CombineArray(top.arrayHashes)
	span := schema.Span{Begin: top.begin, End: jw.dec.InputOffset(), Hashed: h}
	jw.recordChildHash(h)
	jw.w.PopArray(span)
	return nil
}

// recordChildHash folds a just-finished value's content hash into its
// parent container frame, if any, so the container's own hash (used by
// uniqueItems when the container itself is an array element) can be
// computed once the container closes.
func (jw *JSONWalker) recordChildHash(h uint64) {
	if len(jw.stack) == 0 {
		return
	}
	top := &jw.stack[len(jw.stack)-1]
	if top.isObject {
		top.objHashes = append(top.objHashes, schema.ChildHash{Name: top.pendingKey, Hash: h})
	} else {
		top.arrayHashes = append(top.arrayHashes, h)
	}
}
