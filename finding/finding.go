// Package finding defines the detection record produced by analyzers and
// rules. A finding is immutable after construction and deduplicated by its
// signature string.
package finding

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SignatureSeparator joins the discriminating parts of a finding signature.
// The resulting format ("kind#subkind#discriminators...") is a stable
// contract used to compare persisted findings across runs.
const SignatureSeparator = "#"

// Finding describes a single detection at a concrete location. Two findings
// are considered the same detection iff their signatures are equal.
type Finding struct {
	Location  string `json:"location"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Score     int    `json:"score"`
	Extra     *Extra `json:"extra,omitempty"`
}

// New constructs a finding. The extra mapping may be nil.
func New(location, message, signature string, score int, extra *Extra) *Finding {
	return &Finding{
		Location:  location,
		Message:   message,
		Signature: signature,
		Score:     score,
		Extra:     extra,
	}
}

// Equal reports whether both findings describe the same detection.
func (f *Finding) Equal(other *Finding) bool {
	return other != nil && f.Signature == other.Signature
}

// MakeSignature joins signature parts with the separator. Parts must be
// individually stable across runs on the same input.
func MakeSignature(parts ...string) string {
	return strings.Join(parts, SignatureSeparator)
}

// Extra is an insertion-ordered string-keyed mapping attached to a finding.
// Field names within it are a stable reporting contract (reason, entry_type,
// entry_path, key_type, key_size, ...), so serialization preserves the order
// in which the producing rule set them.
type Extra struct {
	keys   []string
	values map[string]any
}

// NewExtra returns an empty ordered mapping.
func NewExtra() *Extra {
	return &Extra{values: make(map[string]any)}
}

// Set stores a value under key, appending the key on first use. It returns
// the receiver so construction can be chained.
func (e *Extra) Set(key string, value any) *Extra {
	if _, exists := e.values[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
	return e
}

// Get returns the value stored under key.
func (e *Extra) Get(key string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (e *Extra) Keys() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len returns the number of stored keys.
func (e *Extra) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// MarshalJSON renders the mapping as a JSON object with keys in insertion
// order. encoding/json sorts map keys, which would break the field-order
// contract, hence the manual encoder.
func (e *Extra) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(e.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
