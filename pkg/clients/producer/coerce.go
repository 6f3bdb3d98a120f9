package producer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2"
)

// coerce rebuilds an archived value into the shape hamba expects for
// encoding. The record framing surfaces numbers as json.Number and binary
// data as base64 strings; the segment schema tells us what they originally
// were.
func coerce(schema avro.Schema, v any) (any, error) {
	switch schema.Type() {
	case avro.Null:
		return nil, nil

	case avro.Boolean, avro.String, avro.Enum:
		return v, nil

	case avro.Int:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode int field: %w", err)
			}
			return int(i), nil
		case float64:
			return int(n), nil
		}
		return v, nil

	case avro.Long:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode long field: %w", err)
			}
			return i, nil
		case float64:
			return int64(n), nil
		}
		return v, nil

	case avro.Float:
		switch n := v.(type) {
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode float field: %w", err)
			}
			return float32(f), nil
		case float64:
			return float32(n), nil
		}
		return v, nil

	case avro.Double:
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode double field: %w", err)
			}
			return f, nil
		}
		return v, nil

	case avro.Bytes, avro.Fixed:
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bytes field: %w", err)
		}
		return raw, nil

	case avro.Array:
		items, ok := v.([]any)
		if !ok {
			return v, nil
		}
		elem := schema.(*avro.ArraySchema).Items()
		out := make([]any, len(items))
		for i, item := range items {
			coerced, err := coerce(elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil

	case avro.Map:
		values, ok := v.(map[string]any)
		if !ok {
			return v, nil
		}
		elem := schema.(*avro.MapSchema).Values()
		out := make(map[string]any, len(values))
		for k, item := range values {
			coerced, err := coerce(elem, item)
			if err != nil {
				return nil, err
			}
			out[k] = coerced
		}
		return out, nil

	case avro.Record:
		fields, ok := v.(map[string]any)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(fields))
		for _, field := range schema.(*avro.RecordSchema).Fields() {
			value, present := fields[field.Name()]
			if !present {
				continue
			}
			coerced, err := coerce(field.Type(), value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name(), err)
			}
			out[field.Name()] = coerced
		}
		return out, nil

	case avro.Union:
		return coerceUnion(schema.(*avro.UnionSchema), v)

	case avro.Ref:
		return coerce(schema.(*avro.RefSchema).Schema(), v)

	default:
		return v, nil
	}
}

// coerceUnion rebuilds a union value. hamba's generic form is asymmetric: a
// two-branch nullable union decodes to the bare value or nil, every other
// union to a single-branch map keyed by the branch name.
func coerceUnion(schema *avro.UnionSchema, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	if branch, ok := nullableBranch(schema); ok {
		return coerce(branch, v)
	}

	branches, ok := v.(map[string]any)
	if !ok || len(branches) != 1 {
		return nil, fmt.Errorf("union value is not a single-branch map: %T", v)
	}

	for name, inner := range branches {
		for _, branch := range schema.Types() {
			if branchName(branch) != name {
				continue
			}
			coerced, err := coerce(branch, inner)
			if err != nil {
				return nil, err
			}
			return map[string]any{name: coerced}, nil
		}
		return nil, fmt.Errorf("union branch %q not present in schema", name)
	}
	return nil, nil
}

// nullableBranch returns the non-null branch of a ["null", T] union.
func nullableBranch(schema *avro.UnionSchema) (avro.Schema, bool) {
	types := schema.Types()
	if len(types) != 2 {
		return nil, false
	}
	switch {
	case types[0].Type() == avro.Null:
		return types[1], true
	case types[1].Type() == avro.Null:
		return types[0], true
	}
	return nil, false
}

// branchName yields the key hamba uses for a union branch in its generic
// map representation.
func branchName(schema avro.Schema) string {
	if named, ok := schema.(avro.NamedSchema); ok {
		return named.FullName()
	}
	if ref, ok := schema.(*avro.RefSchema); ok {
		return branchName(ref.Schema())
	}
	return string(schema.Type())
}
