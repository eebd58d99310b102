// Package richtext parses Quill-style delta documents and moves inline
// data-URI images out of them into blob storage.
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocument is returned for bodies that are not a delta document.
var ErrInvalidDocument = errors.New("invalid rich-content document")

// Operation is one entry of a delta document: *TextInsert, *ImageInsert or
// *Other.
type Operation interface {
	// Raw returns the compact JSON encoding of the operation.
	Raw() json.RawMessage
	isOperation()
}

// TextInsert inserts plain text.
type TextInsert struct {
	Text string
	raw  json.RawMessage
}

func (o *TextInsert) Raw() json.RawMessage { return o.raw }
func (*TextInsert) isOperation()           {}

// ImageInsert inserts an image given by URL or data URI.
type ImageInsert struct {
	Source string

	raw    json.RawMessage
	fields map[string]json.RawMessage
	insert map[string]json.RawMessage
	dirty  bool
}

// IsDataURI reports whether the image is embedded inline.
func (o *ImageInsert) IsDataURI() bool {
	return strings.HasPrefix(o.Source, DataURIScheme)
}

// SetSource replaces the image payload, keeping every sibling field.
func (o *ImageInsert) SetSource(src string) {
	o.Source = src
	o.dirty = true
}

func (o *ImageInsert) Raw() json.RawMessage {
	if !o.dirty {
		return o.raw
	}
	o.insert["image"] = encode(o.Source)
	o.fields["insert"] = encode(o.insert)
	o.raw = encode(o.fields)
	o.dirty = false
	return o.raw
}

func (*ImageInsert) isOperation() {}

// Other is any operation the package does not interpret: embeds other than
// images, retain and delete operations. It is passed through verbatim.
type Other struct {
	raw json.RawMessage
}

func (o *Other) Raw() json.RawMessage { return o.raw }
func (*Other) isOperation()           {}

// Document is a parsed delta.
type Document struct {
	ops []Operation
	// envelope holds the top-level object when the delta was stored as
	// {"ops":[...]} rather than a bare array.
	envelope map[string]json.RawMessage
}

// Ops returns the operations in document order.
func (d *Document) Ops() []Operation {
	return d.ops
}

// Len returns the number of operations.
func (d *Document) Len() int {
	return len(d.ops)
}

// Parse decodes a serialized delta. A blank or null body is an empty document.
func Parse(raw string) (*Document, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return &Document{}, nil
	}

	doc := &Document{}
	var items []json.RawMessage

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	case '{':
		if err := json.Unmarshal([]byte(trimmed), &doc.envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		ops, ok := doc.envelope["ops"]
		if !ok {
			return nil, fmt.Errorf("%w: object without ops", ErrInvalidDocument)
		}
		if err := json.Unmarshal(ops, &items); err != nil {
			return nil, fmt.Errorf("%w: ops: %v", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected a JSON array of operations", ErrInvalidDocument)
	}

	doc.ops = make([]Operation, 0, len(items))
	for i, item := range items {
		op, err := parseOperation(item)
		if err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", ErrInvalidDocument, i, err)
		}
		doc.ops = append(doc.ops, op)
	}
	return doc, nil
}

func parseOperation(item json.RawMessage) (Operation, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, item); err != nil {
		return nil, err
	}
	raw := json.RawMessage(compact.Bytes())

	// non-object entries are carried through untouched
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return &Other{raw: raw}, nil
	}

	insert, ok := fields["insert"]
	if !ok {
		return &Other{raw: raw}, nil
	}

	var text string
	if err := json.Unmarshal(insert, &text); err == nil {
		return &TextInsert{Text: text, raw: raw}, nil
	}

	var embed map[string]json.RawMessage
	if err := json.Unmarshal(insert, &embed); err != nil || embed == nil {
		return &Other{raw: raw}, nil
	}

	image, ok := embed["image"]
	if !ok {
		return &Other{raw: raw}, nil
	}
	var src string
	if err := json.Unmarshal(image, &src); err != nil {
		return &Other{raw: raw}, nil
	}

	return &ImageInsert{Source: src, raw: raw, fields: fields, insert: embed}, nil
}

// String serializes the document back to its storage form.
func (d *Document) String() string {
	b, _ := d.MarshalJSON()
	return string(b)
}

// MarshalJSON encodes the operations, inside the original envelope if any.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, op := range d.ops {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(op.Raw())
	}
	buf.WriteByte(']')

	if d.envelope == nil {
		return buf.Bytes(), nil
	}

	envelope := make(map[string]json.RawMessage, len(d.envelope))
	for k, v := range d.envelope {
		envelope[k] = v
	}
	envelope["ops"] = buf.Bytes()
	return encode(envelope), nil
}

// encode marshals v without HTML escaping so untouched text keeps its bytes.
func encode(v any) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
