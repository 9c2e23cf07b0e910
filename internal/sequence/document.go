package sequence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ErrInvalidSequenceFormat is returned when input does not resemble a
// sequence document.
var ErrInvalidSequenceFormat = errors.New("invalid sequence format")

// Document is the serialized form of a Sequence.
type Document struct {
	Name string    `json:"name"`
	Seq  []Element `json:"seq"`
}

// Duration returns the largest element offset in milliseconds, or 0 for an
// empty document.
func (d Document) Duration() int64 {
	var last int64
	for _, e := range d.Seq {
		if e.Delay > last {
			last = e.Delay
		}
	}
	return last
}

// documentSchema describes what a sequence document may look like. Both
// levels stay open: unknown fields are carried along, not rejected.
const documentSchema = `
#Element: {
	data?:  _
	delay?: _
	...
}

#Sequence: {
	name?: string
	seq?:  [...#Element]
	...
}
`

// cue.Context is not safe for concurrent use.
var (
	schemaMu  sync.Mutex
	schemaCtx = cuecontext.New()
	schema    = schemaCtx.CompileString(documentSchema).LookupPath(cue.ParsePath("#Sequence"))
)

// ParseDocument decodes a sequence document from raw JSON.
//
// Accepted inputs are a JSON object, or a JSON string whose content is a
// JSON object (the string-encoded form hosts use when a sequence travels as
// text). Everything else yields ErrInvalidSequenceFormat.
func ParseDocument(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidSequenceFormat, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || raw[0] != '{' {
		return Document{}, fmt.Errorf("%w: not an object", ErrInvalidSequenceFormat)
	}

	if err := validateShape(raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidSequenceFormat, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidSequenceFormat, err)
	}
	_, hasName := probe["name"]
	seqRaw, hasSeq := probe["seq"]
	if hasSeq && string(bytes.TrimSpace(seqRaw)) == "null" {
		hasSeq = false
	}
	if !hasName && !hasSeq {
		return Document{}, fmt.Errorf("%w: missing both name and seq", ErrInvalidSequenceFormat)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidSequenceFormat, err)
	}
	if hasSeq && doc.Seq == nil {
		doc.Seq = []Element{}
	}
	return doc, nil
}

// validateShape checks the name/seq structure against the schema. Payloads
// are opaque and never reach CUE, and a null seq counts as absent.
func validateShape(raw []byte) error {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return err
	}

	shape := make(map[string]any, 2)
	if name, ok := top["name"]; ok {
		shape["name"] = name
	}
	if seq := top["seq"]; seq != nil {
		items, ok := seq.([]any)
		if !ok {
			shape["seq"] = seq
		} else {
			elements := make([]any, len(items))
			for i, item := range items {
				if _, isObject := item.(map[string]any); isObject {
					elements[i] = map[string]any{}
					continue
				}
				elements[i] = item
			}
			shape["seq"] = elements
		}
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := schemaCtx.Encode(shape)
	if err := v.Err(); err != nil {
		return err
	}
	return schema.Unify(v).Validate(cue.Concrete(true))
}
