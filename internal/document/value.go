// Package document implements the external document model: named fields
// carrying tagged values, the mapping into engine documents, and primary-key
// resolution for upserts.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lanternhq/lantern/internal/schema"
)

// FieldValue is a tagged value: exactly one of the eight column types, with
// the raw value. Datetime values carry the ISO-8601 string they crossed the
// boundary with; parsing happens in the mapper so bad strings surface as
// InvalidDateTime against the field they arrived in.
type FieldValue struct {
	Type schema.ColumnType

	Bool     bool
	U64      uint64
	I64      int64
	F64      float64
	DateTime string
	Str      string
	Bytes    []byte
	Tree     string
}

func BoolValue(v bool) FieldValue      { return FieldValue{Type: schema.TypeBool, Bool: v} }
func U64Value(v uint64) FieldValue     { return FieldValue{Type: schema.TypeU64, U64: v} }
func I64Value(v int64) FieldValue      { return FieldValue{Type: schema.TypeI64, I64: v} }
func F64Value(v float64) FieldValue    { return FieldValue{Type: schema.TypeF64, F64: v} }
func StringValue(v string) FieldValue  { return FieldValue{Type: schema.TypeString, Str: v} }
func BytesValue(v []byte) FieldValue   { return FieldValue{Type: schema.TypeBytes, Bytes: v} }
func TreeValue(path string) FieldValue { return FieldValue{Type: schema.TypeTree, Tree: path} }

// DateTimeValue tags an instant, formatted the way it crosses the API.
func DateTimeValue(t time.Time) FieldValue {
	return FieldValue{Type: schema.TypeDateTime, DateTime: t.UTC().Format(time.RFC3339Nano)}
}

// DateTimeStringValue tags a raw ISO-8601 string without validating it.
func DateTimeStringValue(s string) FieldValue {
	return FieldValue{Type: schema.TypeDateTime, DateTime: s}
}

// envelope is the wire form of a tagged value: {"type": ..., "value": ...}.
type envelope struct {
	Type  schema.ColumnType `json:"type" cbor:"type"`
	Value json.RawMessage   `json:"value" cbor:"-"`
}

type cborEnvelope struct {
	Type  schema.ColumnType `cbor:"type"`
	Value cbor.RawMessage   `cbor:"value"`
}

// MarshalJSON renders the {type, value} envelope.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: v.Type, Value: raw})
}

// MarshalCBOR renders the same envelope in CBOR.
func (v FieldValue) MarshalCBOR() ([]byte, error) {
	raw, err := cbor.Marshal(v.payload())
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(cborEnvelope{Type: v.Type, Value: raw})
}

// payload returns the bare value for serialization.
func (v FieldValue) payload() interface{} {
	switch v.Type {
	case schema.TypeBool:
		return v.Bool
	case schema.TypeU64:
		return v.U64
	case schema.TypeI64:
		return v.I64
	case schema.TypeF64:
		return v.F64
	case schema.TypeDateTime:
		return v.DateTime
	case schema.TypeString:
		return v.Str
	case schema.TypeBytes:
		return v.Bytes
	case schema.TypeTree:
		return v.Tree
	}
	return nil
}

// UnmarshalJSON decodes the {type, value} envelope, matching the tag
// exhaustively against the eight known types.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decode := func(dst interface{}) error {
		return json.Unmarshal(env.Value, dst)
	}
	return v.fill(env.Type, decode)
}

// UnmarshalCBOR decodes the same envelope from CBOR.
func (v *FieldValue) UnmarshalCBOR(data []byte) error {
	var env cborEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return err
	}
	decode := func(dst interface{}) error {
		return cbor.Unmarshal(env.Value, dst)
	}
	return v.fill(env.Type, decode)
}

func (v *FieldValue) fill(t schema.ColumnType, decode func(interface{}) error) error {
	*v = FieldValue{Type: t}
	switch t {
	case schema.TypeBool:
		return decode(&v.Bool)
	case schema.TypeU64:
		return decode(&v.U64)
	case schema.TypeI64:
		return decode(&v.I64)
	case schema.TypeF64:
		return decode(&v.F64)
	case schema.TypeDateTime:
		return decode(&v.DateTime)
	case schema.TypeString:
		return decode(&v.Str)
	case schema.TypeBytes:
		return decode(&v.Bytes)
	case schema.TypeTree:
		return decode(&v.Tree)
	}
	return fmt.Errorf("unknown value type %q", t)
}
