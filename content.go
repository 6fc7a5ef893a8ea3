package jsonschema

// Content vocabulary keywords (contentEncoding, contentMediaType,
// contentSchema) are, per the 2020-12 validation spec, annotations by
// default: implementations MAY additionally decode and assert against them,
// but are not required to. The streaming engine records the schema
// author's declared encoding/media type/schema as plain annotations rather
// than materializing and recursively validating the decoded payload, which
// would require spinning up a second nested walk mid-stream for a single
// string value.
//
// References:
//   - https://json-schema.org/draft/2020-12/json-schema-validation#name-contentencoding
//   - https://json-schema.org/draft/2020-12/json-schema-validation#name-contentmediatype
//   - https://json-schema.org/draft/2020-12/json-schema-validation#name-contentschema

func (b *builder) compileContent(s *Schema, cs *CompiledSchema, appendKw func(CompiledKeyword)) {
	if s.ContentEncoding != nil {
		appendKw(annotation(AnnoContentEncoding, *s.ContentEncoding))
	}
	if s.ContentMediaType != nil {
		appendKw(annotation(AnnoContentMediaType, *s.ContentMediaType))
	}
	if s.ContentSchema != nil {
		appendKw(annotation(AnnoContentSchema, b.compileNode(s.ContentSchema).URI))
	}
}
