package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Record is a free-form JSON object kept verbatim. Numbers decode as
// json.Number so stored values round-trip with their original text.
type Record map[string]any

// UnmarshalJSON decodes an object preserving number literals.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = m
	return nil
}

// String returns the field rendered the way identity matching compares it.
// Absent and null fields yield ok=false.
func (r Record) String(key string) (string, bool) {
	return Stringify(r[key])
}

// Text is String without the presence flag.
func (r Record) Text(key string) string {
	s, _ := r.String(key)
	return s
}

// Number returns the field as a float when it holds a JSON number.
func (r Record) Number(key string) (float64, bool) {
	return Numeric(r[key])
}

// Object returns a nested object field.
func (r Record) Object(key string) (Record, bool) {
	switch v := r[key].(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	}
	return nil, false
}

// List returns the nested objects of an array field, skipping non-objects.
func (r Record) List(key string) []Record {
	var out []Record
	switch v := r[key].(type) {
	case []Record:
		return v
	case []map[string]any:
		for _, m := range v {
			out = append(out, Record(m))
		}
	case []any:
		for _, item := range v {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			}
		}
	}
	return out
}

// Stringify renders scalar JSON values as text. Numbers keep their literal form.
func Stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Numeric reports whether v is a JSON number and returns its value.
// Strings holding digits and booleans are not numbers.
func Numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// Meta is the save metadata wrapper stored under "_meta".
type Meta = Record

// Meta keys.
const (
	MetaSavedAt = "lastSavedAt"
	MetaSavedBy = "lastSavedBy"
	MetaRemarks = "remarks"
)

// Document is the {_meta, records} wrapper shared by the sessional marks and
// semester results files.
type Document struct {
	Meta    Meta     `json:"_meta"`
	Records []Record `json:"records"`

	// Bare marks a document read from a top-level array. It encodes back to
	// that array.
	Bare bool `json:"-"`
}

// MarshalJSON writes the wrapper object, or the plain records array for a
// Bare document.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.Bare {
		if d.Records == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.Records)
	}
	type wire Document
	return json.Marshal(wire(d))
}

// UnmarshalJSON accepts the wrapper object and, for older files, a bare
// top-level array of records.
func (d *Document) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return err
		}
		*d = Document{Records: records, Bare: true}
		return nil
	}
	type wire Document
	var w wire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	*d = Document(w)
	return nil
}

// SavedAt returns the lastSavedAt stamp.
func (d Document) SavedAt() string {
	return d.Meta.Text(MetaSavedAt)
}

// SavedByName returns lastSavedBy.name, or fallback when absent.
func (d Document) SavedByName(fallback string) string {
	by, ok := d.Meta.Object(MetaSavedBy)
	if !ok {
		return fallback
	}
	name, ok := by.String("name")
	if !ok {
		return fallback
	}
	return name
}

// Remarks returns the free-text remarks from the metadata.
func (d Document) Remarks() string {
	return d.Meta.Text(MetaRemarks)
}
