// Package proto implements the Alpha wire protocol: a declarative,
// tag-dispatched packet schema registry together with a pure (no I/O) codec
// that can build, parse, and opportunistically stream-parse packets.
package proto

import "fmt"

// Record is an ordered heterogeneous map of named packet fields. Order is
// dictated by the originating Schema, not by the map itself: every build
// and parse walks the Schema's field list, never the map's iteration order.
type Record map[string]any

// Kind identifies the wire representation of a single schema field.
type Kind int

const (
	KindUint8 Kind = iota
	KindUint16
	KindUint32
	KindUint64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString // u16-length-prefixed UTF-8
	KindBlob   // u32-length-prefixed raw bytes
	KindNested // inlined nested record, fields flush with the parent
	KindArray  // CountField names a preceding integer field; Elem describes one element
	KindCond   // CondField's value compared to CondValue decides presence of Elem
)

// Field describes one entry of a packet (or nested record) schema.
type Field struct {
	Name string
	Kind Kind

	// Elem is the element/nested schema for KindNested, KindArray, KindCond.
	Elem Schema

	// CountField is the name of a previously-decoded integer field in the
	// same record that holds the element count, for KindArray.
	CountField string

	// CondField/CondValue: for KindCond, Elem is present only when the
	// previously-decoded field named CondField compares equal to CondValue
	// (or not-equal, when CondNotEqual is set).
	CondField    string
	CondValue    int64
	CondNotEqual bool
}

// Schema is an ordered list of fields describing one packet's payload (or
// one nested record within it).
type Schema []Field

// SchemaMismatchError is returned when a build-side field is missing or the
// wrong type, or a parse-side string fails UTF-8 validation, or a counted
// field overflows its declared width.
type SchemaMismatchError struct {
	Tag   byte
	Field string
	Msg   string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("proto: schema mismatch for tag %d field %q: %s", e.Tag, e.Field, e.Msg)
}

// ShortReadError indicates the buffer ended inside a field. It is non-fatal
// at the stream level: ParseStream stops and preserves the unconsumed tail.
type ShortReadError struct {
	Tag   byte
	Field string
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("proto: short read for tag %d field %q", e.Tag, e.Field)
}

// UnknownPacketError indicates a leading tag byte that has no registered
// schema. It is fatal at the stream level: the byte stream cannot be
// resynchronised past an unrecognised tag.
type UnknownPacketError struct {
	Tag    byte
	Offset int
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("proto: unknown packet tag %d at offset %d", e.Tag, e.Offset)
}
