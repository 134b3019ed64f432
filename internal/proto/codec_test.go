package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPing(t *testing.T) {
	b, err := Build(0, Record{})
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)
}

func TestParseHandshake(t *testing.T) {
	wire := []byte{0x02, 0x00, 0x05, 'A', 'l', 'i', 'c', 'e'}

	packets, leftover, err := ParseStream(wire)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Empty(t, leftover)
	assert.Equal(t, byte(2), packets[0].Tag)
	assert.Equal(t, "Alice", packets[0].Fields["username"])
}

func TestParseStreamShortLogin(t *testing.T) {
	// login: protocol=5, username length=3, only "ab" present (2 of 3 bytes).
	wire := []byte{0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x03, 'a', 'b'}

	packets, leftover, err := ParseStream(wire)
	require.NoError(t, err)
	assert.Empty(t, packets)
	assert.Equal(t, wire, leftover)
}

func TestParseStreamUnknownTagIsFatal(t *testing.T) {
	wire := []byte{0xFE, 'r', 'e', 's', 't'}

	packets, leftover, err := ParseStream(wire)
	require.Error(t, err)
	var unk *UnknownPacketError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, byte(0xFE), unk.Tag)
	assert.Empty(t, packets)
	assert.Equal(t, wire, leftover)
}

func TestParseStreamCanonicalisesMultiplePackets(t *testing.T) {
	ping, _ := Build(0, Record{})
	chat, _ := Build(3, Record{"message": "hi"})

	wire := append(append([]byte{}, ping...), chat...)
	packets, leftover, err := ParseStream(wire)
	require.NoError(t, err)
	assert.Empty(t, leftover)
	require.Len(t, packets, 2)
	assert.Equal(t, byte(0), packets[0].Tag)
	assert.Equal(t, byte(3), packets[1].Tag)
	assert.Equal(t, "hi", packets[1].Fields["message"])
}

func TestOpportunisticBoundary(t *testing.T) {
	wire, err := Build(3, Record{"message": "hello world"})
	require.NoError(t, err)

	for k := 0; k < len(wire); k++ {
		packets, leftover, err := ParseStream(wire[:k])
		require.NoError(t, err)
		assert.Empty(t, packets, "k=%d", k)
		assert.Equal(t, wire[:k], leftover, "k=%d", k)
	}
}

func TestInventorySyncConditionalSlots(t *testing.T) {
	fields := Record{
		"window": uint32(1),
		"length": uint16(2),
		"slots": []Record{
			{"id": uint16(0xFFFF)},
			{"id": uint16(5), "count": uint8(3), "damage": uint16(7)},
		},
	}

	wire, err := Build(5, fields)
	require.NoError(t, err)

	rec, n, err := ParseOne(5, wire[1:])
	require.NoError(t, err)
	assert.Equal(t, len(wire)-1, n)

	slots := rec["slots"].([]Record)
	require.Len(t, slots, 2)
	_, hasCountForEmpty := slots[0]["count"]
	assert.False(t, hasCountForEmpty)
	assert.Equal(t, uint8(3), slots[1]["count"])
	assert.Equal(t, uint16(7), slots[1]["damage"])
}

func TestBatchSharedLengthArrays(t *testing.T) {
	fields := Record{
		"a":           uint32(1),
		"b":           uint32(2),
		"coords":      []Record{{"v": uint16(10)}, {"v": uint16(20)}},
		"block_ids":   []Record{{"v": uint8(1)}, {"v": uint8(2)}},
		"block_data":  []Record{{"v": uint8(0)}, {"v": uint8(15)}},
	}

	wire, err := Build(52, fields)
	require.NoError(t, err)

	rec, n, err := ParseOne(52, wire[1:])
	require.NoError(t, err)
	assert.Equal(t, len(wire)-1, n)
	assert.Equal(t, uint16(2), rec["length"])
	assert.Len(t, rec["coords"].([]Record), 2)
}

func TestRoundTripAllSchemas(t *testing.T) {
	fixtures := map[byte]Record{
		0: {},
		1: {"protocol": uint32(14), "username": "steve", "unused": ""},
		2: {"username": "steve"},
		3: {"message": "hello"},
		4: {"timestamp": uint64(123456)},
		5: {
			"window": uint32(0),
			"length": uint16(1),
			"slots":  []Record{{"id": uint16(1), "count": uint8(1), "damage": uint16(0)}},
		},
		6: {"x": uint32(1), "y": uint32(2), "z": uint32(3)},
		10: {"flying": uint8(1)},
		11: {
			"position": Record{"x": 1.0, "y": 2.0, "stance": 2.5, "z": 3.0},
			"flying":   Record{"flying": uint8(0)},
		},
		12: {
			"look":   Record{"rotation": float32(1.5), "pitch": float32(-1.5)},
			"flying": Record{"flying": uint8(1)},
		},
		13: {
			"position": Record{"x": 1.0, "y": 2.0, "stance": 2.5, "z": 3.0},
			"look":     Record{"rotation": float32(0), "pitch": float32(0)},
			"flying":   Record{"flying": uint8(0)},
		},
		14: {"state": uint8(0), "x": uint32(1), "y": uint32(2), "z": uint32(3), "face": uint8(1)},
		15: {"block": uint16(1), "x": uint32(1), "y": uint8(2), "z": uint32(3), "face": uint8(1)},
		16: {"a": uint32(1), "b": uint16(2)},
		17: {"type": uint16(1), "qty": uint8(1), "wear": uint16(0)},
		18: {"a": uint32(1), "b": uint8(2)},
		22: {"a": uint32(1), "b": uint32(2)},
		29: {"entity": Record{"id": uint32(7)}},
		30: {"entity": Record{"id": uint32(7)}},
		31: {"entity": Record{"id": uint32(7)}, "dx": uint8(1), "dy": uint8(2), "dz": uint8(3)},
		32: {"entity": Record{"id": uint32(7)}, "rot": uint8(1), "pitch": uint8(2)},
		33: {
			"entity": Record{"id": uint32(7)}, "dx": uint8(1), "dy": uint8(2), "dz": uint8(3),
			"rot": uint8(4), "pitch": uint8(5),
		},
		20: {"a": uint32(1), "b": "x", "c": uint32(1), "d": uint32(2), "e": uint32(3), "f": uint8(1), "g": uint8(2), "h": uint16(3)},
		21: {"a": uint32(1), "b": uint16(2), "c": uint8(3), "d": uint32(4), "e": uint32(5), "f": uint32(6), "g": uint8(7), "h": uint8(8), "i": uint8(9)},
		23: {"a": uint32(1), "b": uint8(2), "c": uint32(3), "d": uint32(4), "e": uint32(5)},
		24: {"a": uint32(1), "b": uint8(2), "c": uint32(3), "d": uint32(4), "e": uint32(5), "f": uint8(6), "g": uint8(7)},
		34: {"a": uint32(1), "b": uint32(2), "c": uint32(3), "d": uint32(4), "e": uint8(5), "f": uint8(6)},
		50: {"x": int32(-1), "z": int32(70), "enabled": uint8(1)},
		51: {"x": int32(-1), "y": uint16(0), "z": int32(70), "xs": uint8(15), "ys": uint8(127), "zs": uint8(15), "data": []byte{1, 2, 3}},
		52: {
			"a": uint32(1), "b": uint32(2), "length": uint16(1),
			"coords":     []Record{{"v": uint16(1)}},
			"block_ids":  []Record{{"v": uint8(1)}},
			"block_data": []Record{{"v": uint8(1)}},
		},
		53:  {"a": uint32(1), "b": uint8(2), "c": uint32(3), "d": uint8(4), "e": uint8(5)},
		59:  {"a": uint32(1), "b": uint16(2), "c": uint32(3), "length": uint16(1), "data": []Record{{"v": uint8(9)}}},
		255: {"message": "boom"},
	}

	for tag, rec := range fixtures {
		wire, err := Build(tag, rec)
		require.NoError(t, err, "tag %d", tag)

		got, n, err := ParseOne(tag, wire[1:])
		require.NoError(t, err, "tag %d", tag)
		assert.Equal(t, len(wire)-1, n, "tag %d", tag)
		assert.Equal(t, rec, got, "tag %d", tag)
	}
}

func TestBuildRejectsMissingField(t *testing.T) {
	_, err := Build(3, Record{})
	require.Error(t, err)
	var mismatch *SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestBuildRejectsOutOfRangeInteger(t *testing.T) {
	_, err := Build(10, Record{"flying": uint8(0)})
	require.NoError(t, err)

	_, err = Build(6, Record{"x": uint32(1), "y": uint32(2), "z": int64(-1)})
	require.Error(t, err)
}

func TestParseOneInvalidUTF8(t *testing.T) {
	// chat message length=2, invalid UTF-8 bytes.
	payload := []byte{0x00, 0x02, 0xff, 0xfe}
	_, _, err := ParseOne(3, payload)
	require.Error(t, err)
	var mismatch *SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestMakeError(t *testing.T) {
	wire := MakeError("bad packet")
	assert.Equal(t, byte(255), wire[0])
	rec, _, err := ParseOne(255, wire[1:])
	require.NoError(t, err)
	assert.Equal(t, "bad packet", rec["message"])
}
