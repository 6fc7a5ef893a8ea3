package jsonschema

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// TypeSet is a bitmask of the JSON Schema primitive types, used by the
// streaming engine's Type validation instead of string comparisons.
type TypeSet uint8

const (
	TypeNull TypeSet = 1 << iota
	TypeBoolean
	TypeObject
	TypeArray
	TypeNumber
	TypeInteger
	TypeString
)

// typeSetFromStrings lowers the "type" keyword's string/array-of-string
// representation into the engine's bitmask.
func typeSetFromStrings(types SchemaType) TypeSet {
	var ts TypeSet
	for _, t := range types {
		switch t {
		case "null":
			ts |= TypeNull
		case "boolean":
			ts |= TypeBoolean
		case "object":
			ts |= TypeObject
		case "array":
			ts |= TypeArray
		case "number":
			ts |= TypeNumber
		case "integer":
			ts |= TypeInteger
		case "string":
			ts |= TypeString
		}
	}
	return ts
}

// LocationKind discriminates the three shapes of instance Location.
type LocationKind int

const (
	LocationRoot LocationKind = iota
	LocationProperty
	LocationItem
)

// Location pinpoints one node of the instance being walked, relative to its
// parent container. Index is the zero-based position among the container's
// children and doubles as the index into a Scope's evaluated bitvectors.
type Location struct {
	Kind   LocationKind
	Parent *Location
	Name   string
	Index  int
}

// RootLocation returns the Location for the document's top-level value.
func RootLocation() Location {
	return Location{Kind: LocationRoot}
}

// Property builds the Location for a named child of an object at parent.
func (l Location) Property(name string, index int) Location {
	return Location{Kind: LocationProperty, Parent: &l, Name: name, Index: index}
}

// Item builds the Location for an indexed child of an array at parent.
func (l Location) Item(index int) Location {
	return Location{Kind: LocationItem, Parent: &l, Index: index}
}

// Span is the byte range and content hash of a JSON token, as supplied by
// the Walker.
type Span struct {
	Begin  int64
	End    int64
	Hashed uint64
}

// Content hashing. Const/Enum/UniqueItems compare values by this hash alone,
// never by materializing and deep-comparing the value, so the hash must
// canonicalize numerics (1 and 1.0 must hash equal) and be independent of
// object key order.
type valueTag byte

const (
	tagNull valueTag = iota
	tagBool
	tagNumber
	tagString
	tagArray
	tagObject
)

func hashTagged(tag valueTag, b []byte) uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(tag)})
	h.Write(b)
	return h.Sum64()
}

// HashNull returns the content hash of a JSON null.
func HashNull() uint64 { return hashTagged(tagNull, nil) }

// HashBool returns the content hash of a JSON boolean.
func HashBool(v bool) uint64 {
	if v {
		return hashTagged(tagBool, []byte{1})
	}
	return hashTagged(tagBool, []byte{0})
}

// HashString returns the content hash of a JSON string.
func HashString(s string) uint64 { return hashTagged(tagString, []byte(s)) }

// HashNumber returns the content hash of a JSON number, canonicalized
// through Rat's decimal formatting so "1" and "1.0" hash identically.
func HashNumber(r *Rat) uint64 { return hashTagged(tagNumber, []byte(FormatRat(r))) }

// ChildHash pairs a combining key with a child's content hash. Name is used
// (and the slice sorted by it) when combining object members; it is ignored
// for array elements.
type ChildHash struct {
	Name string
	Hash uint64
}

// CombineArray folds ordered child hashes into one array-value hash.
func CombineArray(children []uint64) uint64 {
	h := xxhash.New()
	h.Write([]byte{byte(tagArray)})
	buf := make([]byte, 8)
	for _, c := range children {
		binary.LittleEndian.PutUint64(buf, c)
		h.Write(buf)
	}
	return h.Sum64()
}

// CombineObject folds member hashes into one object-value hash, independent
// of member order (two objects with the same key/value pairs in different
// orders hash identically, per the "const"/"enum" equality rules).
func CombineObject(children []ChildHash) uint64 {
	sorted := make([]ChildHash, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := xxhash.New()
	h.Write([]byte{byte(tagObject)})
	buf := make([]byte, 8)
	for _, c := range sorted {
		h.Write([]byte(c.Name))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf, c.Hash)
		h.Write(buf)
	}
	return h.Sum64()
}

func containsHash(hashes []uint64, h uint64) bool {
	for _, v := range hashes {
		if v == h {
			return true
		}
	}
	return false
}

const wordBits = 64

// InternSet is a word-indexed bitset over a schema's interned property
// names. It supports the O(1) mask equality/zero tests that Required and
// DependentRequired need, and grows (like the schemas it describes) far
// beyond 64 distinct names without forcing every schema to pay for a wide
// fixed-size word.
type InternSet []uint64

// NewInternSet preallocates enough words to hold nbits distinct bit ids.
func NewInternSet(nbits int) InternSet {
	return make(InternSet, (nbits+wordBits-1)/wordBits)
}

// Set returns the set with bit turned on, growing the backing slice if
// necessary.
func (s InternSet) Set(bit uint32) InternSet {
	word := int(bit) / wordBits
	for len(s) <= word {
		s = append(s, 0)
	}
	s[word] |= 1 << (uint(bit) % wordBits)
	return s
}

// Test reports whether bit is set.
func (s InternSet) Test(bit uint32) bool {
	word := int(bit) / wordBits
	if word >= len(s) {
		return false
	}
	return s[word]&(1<<(uint(bit)%wordBits)) != 0
}

// Or returns the bitwise union, growing as needed; s is mutated in place
// when it already has enough capacity.
func (s InternSet) Or(other InternSet) InternSet {
	if len(other) > len(s) {
		grown := make(InternSet, len(other))
		copy(grown, s)
		s = grown
	}
	for i, w := range other {
		s[i] |= w
	}
	return s
}

// And returns the bitwise intersection.
func (s InternSet) And(other InternSet) InternSet {
	n := len(s)
	if len(other) < n {
		n = len(other)
	}
	out := make(InternSet, n)
	for i := 0; i < n; i++ {
		out[i] = s[i] & other[i]
	}
	return out
}

// IsZero reports whether no bit is set.
func (s InternSet) IsZero() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

// Equal reports mask equality, treating a missing word as all-zero.
func (s InternSet) Equal(other InternSet) bool {
	n := len(s)
	if len(other) > n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(s) {
			a = s[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

func orBits(dst, src []bool) []bool {
	for i, v := range src {
		for len(dst) <= i {
			dst = append(dst, false)
		}
		dst[i] = dst[i] || v
	}
	return dst
}
