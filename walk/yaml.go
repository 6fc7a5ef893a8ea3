package walk

import (
	"bytes"

	"github.com/go-json-experiment/json"
	"github.com/goccy/go-yaml"

	schema "github.com/corvuscore/streamschema"
)

// FromYAML decodes a YAML document and drives w with the same depth-first
// event stream a JSONWalker would produce from its JSON-equivalent form, by
// re-encoding the decoded document to canonical JSON first.
func FromYAML(data []byte, w schema.Walker) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return NewJSONWalker(bytes.NewReader(canonical), w).Walk()
}
