package nimble

import (
	"fmt"

	"github.com/go-faster/jx"
)

// JSON values have no dedicated container kind of their own: a parsed
// JSON document is represented directly as the existing Scalar/List/Map/
// None values it would decode to in any other context, rather than behind
// a wrapper type.

// parseJSON decodes a JSON document into a Value tree: objects become *Map
// (insertion order preserved), arrays become *List, numbers become an Int64
// or Double Scalar depending on whether jx reports an integral value,
// strings become a String Scalar, and null becomes None.
func parseJSON(data string) (Value, error) {
	dec := jx.GetDecoder()
	defer jx.PutDecoder(dec)

	dec.ResetBytes([]byte(data))
	v, err := jsonToValue(dec)
	if err != nil {
		return nil, argumentError(token0(), "parse_json: %v", err)
	}
	return v, nil
}

func jsonToValue(dec *jx.Decoder) (Value, error) {
	switch dec.Next() {
	case jx.Number:
		num, err := dec.Num()
		if err != nil {
			return nil, err
		}
		if num.IsInt() {
			i, err := num.Int64()
			if err != nil {
				return nil, err
			}
			return NewInt64(i), nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		return NewDouble(f), nil
	case jx.String:
		s, err := dec.Str()
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case jx.Bool:
		b, err := dec.Bool()
		if err != nil {
			return nil, err
		}
		return NewBool(b), nil
	case jx.Null:
		if err := dec.Null(); err != nil {
			return nil, err
		}
		return None, nil
	case jx.Array:
		var elems []Value
		err := dec.Arr(func(d *jx.Decoder) error {
			v, err := jsonToValue(d)
			if err != nil {
				return err
			}
			elems = append(elems, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return NewList(elems), nil
	case jx.Object:
		m := NewMap()
		err := dec.Obj(func(d *jx.Decoder, key string) error {
			v, err := jsonToValue(d)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unexpected JSON token")
}

// toJSONString serializes a Value tree back to JSON text. jx's Encoder
// covers the scalar/array/object writer calls this needs one for one, so
// the encode side is built on jx too rather than a hand-rolled
// strings.Builder walk.
func toJSONString(v Value) (string, error) {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	enc.Reset()

	if err := valueToJSON(enc, v); err != nil {
		return "", argumentError(token0(), "to_json_str: %v", err)
	}
	return string(enc.Bytes()), nil
}

func valueToJSON(enc *jx.Encoder, v Value) error {
	switch x := v.(type) {
	case *Scalar:
		return scalarToJSON(enc, x)
	case *List:
		enc.ArrStart()
		for elem := range x.Elements() {
			if err := valueToJSON(enc, elem); err != nil {
				return err
			}
		}
		enc.ArrEnd()
		return nil
	case *Tuple:
		enc.ArrStart()
		for elem := range x.Elements() {
			if err := valueToJSON(enc, elem); err != nil {
				return err
			}
		}
		enc.ArrEnd()
		return nil
	case *Map:
		enc.ObjStart()
		for key, value := range x.Entries() {
			keyScalar, ok := key.(*Scalar)
			if !ok {
				return fmt.Errorf("non-scalar map key cannot be encoded in json")
			}
			enc.FieldStart(keyScalar.String())
			if err := valueToJSON(enc, value); err != nil {
				return fmt.Errorf("%s: %w", keyScalar.String(), err)
			}
		}
		enc.ObjEnd()
		return nil
	}
	return fmt.Errorf("%q cannot be encoded in json", v.TypeName())
}

func scalarToJSON(enc *jx.Encoder, s *Scalar) error {
	switch s.DType() {
	case DNone:
		enc.Null()
	case DBool:
		enc.Bool(!s.IsFalsy())
	case DInt32, DInt64:
		enc.Int64(s.AsInt64())
	case DFloat, DDouble:
		enc.Float64(s.AsFloat64())
	case DString, DUnicodeString:
		enc.Str(s.String())
	default:
		return fmt.Errorf("%q cannot be encoded in json", s.TypeName())
	}
	return nil
}
