package proto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Build serialises fields according to tag's registered schema and prepends
// the tag byte. It fails with a *SchemaMismatchError when a required field
// is missing, of the wrong type, or an integer value is out of range.
func Build(tag byte, fields Record) ([]byte, error) {
	schema, ok := Lookup(tag)
	if !ok {
		return nil, &SchemaMismatchError{Tag: tag, Msg: fmt.Sprintf("tag %d is not registered", tag)}
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(tag)
	if err := encodeSchema(buf, tag, schema, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MakeError builds a tag-255 error packet carrying msg.
func MakeError(msg string) []byte {
	b, err := Build(255, Record{"message": msg})
	if err != nil {
		// Build fails here only when msg is longer than 65535 bytes or the
		// registry itself is broken; MakeError panics in either case.
		panic(err)
	}
	return b
}

// ParseOne consumes exactly the bytes tag's schema requires from payload
// and returns the decoded record plus the number of bytes consumed.
func ParseOne(tag byte, payload []byte) (Record, int, error) {
	schema, ok := Lookup(tag)
	if !ok {
		return nil, 0, &UnknownPacketError{Tag: tag}
	}
	return decodeSchema(payload, schema, tag)
}

// Packet is one fully decoded packet extracted by ParseStream.
type Packet struct {
	Tag    byte
	Fields Record
}

// ParseStream is the opportunistic incremental parser: it extracts as many
// whole packets as possible from buf and returns them together with the
// unconsumed tail, which is always a suffix of buf (never a copy-on-success
// path; the returned slice aliases buf).
//
// On ShortRead the parser stops and returns the accumulated packets plus buf
// from the current tag byte onward. On UnknownPacketError the stream is
// unrecoverable: the same leftover is returned alongside the error, and the
// caller is entitled to disconnect. Any other codec error behaves like
// ShortRead for the purpose of the returned leftover, but is also returned
// so the caller can choose to disconnect.
func ParseStream(buf []byte) ([]Packet, []byte, error) {
	var out []Packet
	offset := 0

	for offset < len(buf) {
		tag := buf[offset]
		schema, ok := Lookup(tag)
		if !ok {
			return out, buf[offset:], &UnknownPacketError{Tag: tag, Offset: offset}
		}

		rec, n, err := decodeSchema(buf[offset+1:], schema, tag)
		if err != nil {
			if _, isShort := err.(*ShortReadError); isShort {
				return out, buf[offset:], nil
			}
			return out, buf[offset:], err
		}

		out = append(out, Packet{Tag: tag, Fields: rec})
		offset += 1 + n
	}

	return out, buf[offset:], nil
}

// --- schema interpreter ---

func encodeSchema(buf *bytes.Buffer, tag byte, schema Schema, rec Record) error {
	overrides := arrayCountOverrides(schema, rec)

	for _, f := range schema {
		if expected, ok := overrides[f.Name]; ok {
			if err := writeInt(buf, f.Kind, int64(expected)); err != nil {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: err.Error()}
			}
			continue
		}

		switch f.Kind {
		case KindUint8, KindUint16, KindUint32, KindUint64,
			KindInt8, KindInt16, KindInt32, KindInt64:
			v, err := toInt64(rec[f.Name], f.Kind)
			if err != nil {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: err.Error()}
			}
			if err := writeInt(buf, f.Kind, v); err != nil {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: err.Error()}
			}

		case KindFloat32:
			v, ok := rec[f.Name].(float32)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected float32"}
			}
			_ = binary.Write(buf, binary.BigEndian, math.Float32bits(v))

		case KindFloat64:
			v, ok := rec[f.Name].(float64)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected float64"}
			}
			_ = binary.Write(buf, binary.BigEndian, math.Float64bits(v))

		case KindString:
			s, ok := rec[f.Name].(string)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected string"}
			}
			if len(s) > 0xFFFF {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "string exceeds 65535 bytes"}
			}
			_ = binary.Write(buf, binary.BigEndian, uint16(len(s)))
			buf.WriteString(s)

		case KindBlob:
			b, ok := rec[f.Name].([]byte)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected []byte"}
			}
			_ = binary.Write(buf, binary.BigEndian, uint32(len(b)))
			buf.Write(b)

		case KindNested:
			sub, ok := rec[f.Name].(Record)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected nested record"}
			}
			if err := encodeSchema(buf, tag, f.Elem, sub); err != nil {
				return err
			}

		case KindArray:
			arr, ok := rec[f.Name].([]Record)
			if !ok {
				return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "expected array of records"}
			}
			for _, elem := range arr {
				if err := encodeSchema(buf, tag, f.Elem, elem); err != nil {
					return err
				}
			}

		case KindCond:
			present, err := condPresent(rec, f, tag)
			if err != nil {
				return err
			}
			if present {
				if err := encodeSchema(buf, tag, f.Elem, rec); err != nil {
					return err
				}
			}

		default:
			return &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "unregistered field kind"}
		}
	}
	return nil
}

func decodeSchema(buf []byte, schema Schema, tag byte) (Record, int, error) {
	rec := Record{}
	off := 0

	need := func(name string, n int) error {
		if len(buf)-off < n {
			return &ShortReadError{Tag: tag, Field: name}
		}
		return nil
	}

	for _, f := range schema {
		switch f.Kind {
		case KindUint8, KindInt8:
			if err := need(f.Name, 1); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = decodeInt(buf[off:off+1], f.Kind)
			off++

		case KindUint16, KindInt16:
			if err := need(f.Name, 2); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = decodeInt(buf[off:off+2], f.Kind)
			off += 2

		case KindUint32, KindInt32:
			if err := need(f.Name, 4); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = decodeInt(buf[off:off+4], f.Kind)
			off += 4

		case KindUint64, KindInt64:
			if err := need(f.Name, 8); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = decodeInt(buf[off:off+8], f.Kind)
			off += 8

		case KindFloat32:
			if err := need(f.Name, 4); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = math.Float32frombits(binary.BigEndian.Uint32(buf[off : off+4]))
			off += 4

		case KindFloat64:
			if err := need(f.Name, 8); err != nil {
				return nil, 0, err
			}
			rec[f.Name] = math.Float64frombits(binary.BigEndian.Uint64(buf[off : off+8]))
			off += 8

		case KindString:
			if err := need(f.Name, 2); err != nil {
				return nil, 0, err
			}
			slen := int(binary.BigEndian.Uint16(buf[off : off+2]))
			off += 2
			if err := need(f.Name, slen); err != nil {
				return nil, 0, err
			}
			raw := buf[off : off+slen]
			if !utf8.Valid(raw) {
				return nil, 0, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "invalid UTF-8"}
			}
			rec[f.Name] = string(raw)
			off += slen

		case KindBlob:
			if err := need(f.Name, 4); err != nil {
				return nil, 0, err
			}
			blen := int(binary.BigEndian.Uint32(buf[off : off+4]))
			off += 4
			if blen < 0 {
				return nil, 0, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "negative blob length"}
			}
			if err := need(f.Name, blen); err != nil {
				return nil, 0, err
			}
			dup := make([]byte, blen)
			copy(dup, buf[off:off+blen])
			rec[f.Name] = dup
			off += blen

		case KindNested:
			sub, n, err := decodeSchema(buf[off:], f.Elem, tag)
			if err != nil {
				return nil, 0, err
			}
			rec[f.Name] = sub
			off += n

		case KindArray:
			count, err := toInt64(rec[f.CountField], KindInt64)
			if err != nil {
				return nil, 0, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "missing or invalid count field " + f.CountField}
			}
			if count < 0 {
				return nil, 0, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "negative element count"}
			}
			elems := make([]Record, 0, count)
			for i := int64(0); i < count; i++ {
				elem, n, err := decodeSchema(buf[off:], f.Elem, tag)
				if err != nil {
					return nil, 0, err
				}
				elems = append(elems, elem)
				off += n
			}
			rec[f.Name] = elems

		case KindCond:
			present, err := condPresent(rec, f, tag)
			if err != nil {
				return nil, 0, err
			}
			if present {
				sub, n, err := decodeSchema(buf[off:], f.Elem, tag)
				if err != nil {
					return nil, 0, err
				}
				for k, v := range sub {
					rec[k] = v
				}
				off += n
			}

		default:
			return nil, 0, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "unregistered field kind"}
		}
	}

	return rec, off, nil
}

// arrayCountOverrides returns, for every field that a later Array field
// names as its CountField, the expected count derived from that array's
// Record value. The count is computed from the array rather than trusted
// from caller input, so a caller need not keep an explicit length field in
// sync with the slice it names.
func arrayCountOverrides(schema Schema, rec Record) map[string]int {
	overrides := map[string]int{}
	for _, f := range schema {
		if f.Kind != KindArray {
			continue
		}
		if arr, ok := rec[f.Name].([]Record); ok {
			overrides[f.CountField] = len(arr)
		}
	}
	return overrides
}

func condPresent(rec Record, f Field, tag byte) (bool, error) {
	raw, ok := rec[f.CondField]
	if !ok {
		return false, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "missing condition field " + f.CondField}
	}
	v, err := toInt64(raw, KindInt64)
	if err != nil {
		return false, &SchemaMismatchError{Tag: tag, Field: f.Name, Msg: "condition field not integral"}
	}
	equal := v == f.CondValue
	if f.CondNotEqual {
		return !equal, nil
	}
	return equal, nil
}

func writeInt(buf *bytes.Buffer, k Kind, v int64) error {
	switch k {
	case KindUint8:
		if v < 0 || v > 0xFF {
			return fmt.Errorf("value %d out of range for u1", v)
		}
		buf.WriteByte(byte(v))
	case KindInt8:
		if v < -0x80 || v > 0x7F {
			return fmt.Errorf("value %d out of range for i1", v)
		}
		buf.WriteByte(byte(int8(v)))
	case KindUint16:
		if v < 0 || v > 0xFFFF {
			return fmt.Errorf("value %d out of range for u2", v)
		}
		return binary.Write(buf, binary.BigEndian, uint16(v))
	case KindInt16:
		if v < -0x8000 || v > 0x7FFF {
			return fmt.Errorf("value %d out of range for i2", v)
		}
		return binary.Write(buf, binary.BigEndian, int16(v))
	case KindUint32:
		if v < 0 || v > 0xFFFFFFFF {
			return fmt.Errorf("value %d out of range for u4", v)
		}
		return binary.Write(buf, binary.BigEndian, uint32(v))
	case KindInt32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("value %d out of range for i4", v)
		}
		return binary.Write(buf, binary.BigEndian, int32(v))
	case KindUint64:
		return binary.Write(buf, binary.BigEndian, uint64(v))
	case KindInt64:
		return binary.Write(buf, binary.BigEndian, v)
	default:
		return fmt.Errorf("not an integer kind")
	}
	return nil
}

func decodeInt(raw []byte, k Kind) any {
	switch k {
	case KindUint8:
		return uint8(raw[0])
	case KindInt8:
		return int8(raw[0])
	case KindUint16:
		return binary.BigEndian.Uint16(raw)
	case KindInt16:
		return int16(binary.BigEndian.Uint16(raw))
	case KindUint32:
		return binary.BigEndian.Uint32(raw)
	case KindInt32:
		return int32(binary.BigEndian.Uint32(raw))
	case KindUint64:
		return binary.BigEndian.Uint64(raw)
	case KindInt64:
		return int64(binary.BigEndian.Uint64(raw))
	}
	panic("unreachable")
}

// toInt64 normalises any of the sized Go integer types proto uses in a
// Record into an int64 for arithmetic (count/condition comparisons and
// range-checked re-encoding).
func toInt64(v any, _ Kind) (int64, error) {
	switch n := v.(type) {
	case uint8:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}
