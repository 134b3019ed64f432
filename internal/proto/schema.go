package proto

// Nested record shapes shared by several packets (spec.md §4.B).
var (
	entitySchema = Schema{
		{Name: "id", Kind: KindUint32},
	}
	positionSchema = Schema{
		{Name: "x", Kind: KindFloat64},
		{Name: "y", Kind: KindFloat64},
		{Name: "stance", Kind: KindFloat64},
		{Name: "z", Kind: KindFloat64},
	}
	lookSchema = Schema{
		{Name: "rotation", Kind: KindFloat32},
		{Name: "pitch", Kind: KindFloat32},
	}
	flyingSchema = Schema{
		{Name: "flying", Kind: KindUint8},
	}
)

func entityMoveSchema() Schema {
	return Schema{
		{Name: "entity", Kind: KindNested, Elem: entitySchema},
		{Name: "dx", Kind: KindUint8},
		{Name: "dy", Kind: KindUint8},
		{Name: "dz", Kind: KindUint8},
	}
}

// inventorySlotElem is the per-slot shape used by the inventory_sync (tag 5)
// array: an id, and — only when the id does not mean "empty" (0xFFFF) — a
// count and damage value. This is the spec's canonical example of a
// conditional sub-record nested inside an array element.
var inventorySlotElem = Schema{
	{Name: "id", Kind: KindUint16},
	{
		Name:         "slot",
		Kind:         KindCond,
		CondField:    "id",
		CondValue:    0xFFFF,
		CondNotEqual: true,
		Elem: Schema{
			{Name: "count", Kind: KindUint8},
			{Name: "damage", Kind: KindUint16},
		},
	},
}

var coordElem = Schema{{Name: "v", Kind: KindUint16}}
var byteElem = Schema{{Name: "v", Kind: KindUint8}}

// registry maps packet tag -> schema, exactly as described in spec.md §4.B.
var registry = map[byte]Schema{
	0: {}, // ping

	1: { // login
		{Name: "protocol", Kind: KindUint32},
		{Name: "username", Kind: KindString},
		{Name: "unused", Kind: KindString},
	},
	2: { // handshake
		{Name: "username", Kind: KindString},
	},
	3: { // chat
		{Name: "message", Kind: KindString},
	},
	4: { // time
		{Name: "timestamp", Kind: KindUint64},
	},
	5: { // inventory_sync
		{Name: "window", Kind: KindUint32},
		{Name: "length", Kind: KindUint16},
		{Name: "slots", Kind: KindArray, CountField: "length", Elem: inventorySlotElem},
	},
	6: { // spawn
		{Name: "x", Kind: KindUint32},
		{Name: "y", Kind: KindUint32},
		{Name: "z", Kind: KindUint32},
	},

	10: flyingSchema, // flying
	11: { // position
		{Name: "position", Kind: KindNested, Elem: positionSchema},
		{Name: "flying", Kind: KindNested, Elem: flyingSchema},
	},
	12: { // look
		{Name: "look", Kind: KindNested, Elem: lookSchema},
		{Name: "flying", Kind: KindNested, Elem: flyingSchema},
	},
	13: { // position_look
		{Name: "position", Kind: KindNested, Elem: positionSchema},
		{Name: "look", Kind: KindNested, Elem: lookSchema},
		{Name: "flying", Kind: KindNested, Elem: flyingSchema},
	},
	14: { // digging
		{Name: "state", Kind: KindUint8},
		{Name: "x", Kind: KindUint32},
		{Name: "y", Kind: KindUint32},
		{Name: "z", Kind: KindUint32},
		{Name: "face", Kind: KindUint8},
	},
	15: { // build
		{Name: "block", Kind: KindUint16},
		{Name: "x", Kind: KindUint32},
		{Name: "y", Kind: KindUint8},
		{Name: "z", Kind: KindUint32},
		{Name: "face", Kind: KindUint8},
	},
	16: { // item_switch
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint16},
	},
	17: { // inventory_slot
		{Name: "type", Kind: KindUint16},
		{Name: "qty", Kind: KindUint8},
		{Name: "wear", Kind: KindUint16},
	},

	// Opaque fixed/variable-width packets (§6): passed through, never
	// interpreted by the core. Field names are descriptive placeholders.
	18: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint8},
	},
	20: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindString},
		{Name: "c", Kind: KindUint32},
		{Name: "d", Kind: KindUint32},
		{Name: "e", Kind: KindUint32},
		{Name: "f", Kind: KindUint8},
		{Name: "g", Kind: KindUint8},
		{Name: "h", Kind: KindUint16},
	},
	21: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint16},
		{Name: "c", Kind: KindUint8},
		{Name: "d", Kind: KindUint32},
		{Name: "e", Kind: KindUint32},
		{Name: "f", Kind: KindUint32},
		{Name: "g", Kind: KindUint8},
		{Name: "h", Kind: KindUint8},
		{Name: "i", Kind: KindUint8},
	},
	22: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint32},
	},
	23: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint8},
		{Name: "c", Kind: KindUint32},
		{Name: "d", Kind: KindUint32},
		{Name: "e", Kind: KindUint32},
	},
	24: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint8},
		{Name: "c", Kind: KindUint32},
		{Name: "d", Kind: KindUint32},
		{Name: "e", Kind: KindUint32},
		{Name: "f", Kind: KindUint8},
		{Name: "g", Kind: KindUint8},
	},

	29: {{Name: "entity", Kind: KindNested, Elem: entitySchema}}, // destroy
	30: {{Name: "entity", Kind: KindNested, Elem: entitySchema}}, // entity_spawn
	31: entityMoveSchema(),                                       // entity_position
	32: { // entity_look
		{Name: "entity", Kind: KindNested, Elem: entitySchema},
		{Name: "rot", Kind: KindUint8},
		{Name: "pitch", Kind: KindUint8},
	},
	33: { // entity_position_look
		{Name: "entity", Kind: KindNested, Elem: entitySchema},
		{Name: "dx", Kind: KindUint8},
		{Name: "dy", Kind: KindUint8},
		{Name: "dz", Kind: KindUint8},
		{Name: "rot", Kind: KindUint8},
		{Name: "pitch", Kind: KindUint8},
	},
	34: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint32},
		{Name: "c", Kind: KindUint32},
		{Name: "d", Kind: KindUint32},
		{Name: "e", Kind: KindUint8},
		{Name: "f", Kind: KindUint8},
	},

	50: { // chunk_enable
		{Name: "x", Kind: KindInt32},
		{Name: "z", Kind: KindInt32},
		{Name: "enabled", Kind: KindUint8},
	},
	51: { // chunk
		{Name: "x", Kind: KindInt32},
		{Name: "y", Kind: KindUint16},
		{Name: "z", Kind: KindInt32},
		{Name: "xs", Kind: KindUint8},
		{Name: "ys", Kind: KindUint8},
		{Name: "zs", Kind: KindUint8},
		{Name: "data", Kind: KindBlob},
	},
	52: { // batch (multi-block change)
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint32},
		{Name: "length", Kind: KindUint16},
		{Name: "coords", Kind: KindArray, CountField: "length", Elem: coordElem},
		{Name: "block_ids", Kind: KindArray, CountField: "length", Elem: byteElem},
		{Name: "block_data", Kind: KindArray, CountField: "length", Elem: byteElem},
	},
	53: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint8},
		{Name: "c", Kind: KindUint32},
		{Name: "d", Kind: KindUint8},
		{Name: "e", Kind: KindUint8},
	},
	59: {
		{Name: "a", Kind: KindUint32},
		{Name: "b", Kind: KindUint16},
		{Name: "c", Kind: KindUint32},
		{Name: "length", Kind: KindUint16},
		{Name: "data", Kind: KindArray, CountField: "length", Elem: byteElem},
	},

	255: { // error
		{Name: "message", Kind: KindString},
	},
}

// Lookup returns the registered schema for tag, if any.
func Lookup(tag byte) (Schema, bool) {
	s, ok := registry[tag]
	return s, ok
}

// Registered reports whether tag has a registered schema.
func Registered(tag byte) bool {
	_, ok := registry[tag]
	return ok
}
