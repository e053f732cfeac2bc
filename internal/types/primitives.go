package types

// Well-known keys. They are plain FromName results, computed once so that
// conversion tables can be indexed without hashing on every query.
var (
	VoidKey   = FromName("void")
	BoolKey   = FromName("bool")
	Int8Key   = FromName("int8")
	Int16Key  = FromName("int16")
	IntKey    = FromName("int")
	Int64Key  = FromName("int64")
	Uint8Key  = FromName("uint8")
	Uint16Key = FromName("uint16")
	UintKey   = FromName("uint")
	Uint64Key = FromName("uint64")
	FloatKey  = FromName("float")
	DoubleKey = FromName("double")

	// NullKey is the type of the null literal.
	NullKey = FromName("null")
	// AnyKey is the "?" parameter type of host functions that accept any value.
	AnyKey = FromName("?")
	// ErrorKey is the type given to expressions whose type failed to resolve.
	ErrorKey = FromName("<error>")
)

// ErrorRef is the sentinel result of a failed resolution. It converts to and
// from every type at zero cost so one bad expression does not cascade.
var ErrorRef = TypeRef{Base: ErrorKey}

// PrimKind indexes the numeric primitives.
type PrimKind uint8

const (
	PrimInt8 PrimKind = iota
	PrimInt16
	PrimInt32
	PrimInt64
	PrimUint8
	PrimUint16
	PrimUint32
	PrimUint64
	PrimFloat
	PrimDouble

	PrimCount
)

// PrimInfo describes one built-in primitive.
type PrimInfo struct {
	Name    string
	Key     TypeKey
	Numeric bool
	Kind    PrimKind // valid only when Numeric
	Size    uint8    // bytes, 0 for void
	Signed  bool
	Float   bool
}

// Primitives lists every primitive registered by a fresh catalog, in a
// stable order.
var Primitives = []PrimInfo{
	{Name: "void", Key: VoidKey},
	{Name: "bool", Key: BoolKey, Size: 1},
	{Name: "int8", Key: Int8Key, Numeric: true, Kind: PrimInt8, Size: 1, Signed: true},
	{Name: "int16", Key: Int16Key, Numeric: true, Kind: PrimInt16, Size: 2, Signed: true},
	{Name: "int", Key: IntKey, Numeric: true, Kind: PrimInt32, Size: 4, Signed: true},
	{Name: "int64", Key: Int64Key, Numeric: true, Kind: PrimInt64, Size: 8, Signed: true},
	{Name: "uint8", Key: Uint8Key, Numeric: true, Kind: PrimUint8, Size: 1},
	{Name: "uint16", Key: Uint16Key, Numeric: true, Kind: PrimUint16, Size: 2},
	{Name: "uint", Key: UintKey, Numeric: true, Kind: PrimUint32, Size: 4},
	{Name: "uint64", Key: Uint64Key, Numeric: true, Kind: PrimUint64, Size: 8},
	{Name: "float", Key: FloatKey, Numeric: true, Kind: PrimFloat, Size: 4, Signed: true, Float: true},
	{Name: "double", Key: DoubleKey, Numeric: true, Kind: PrimDouble, Size: 8, Signed: true, Float: true},
}

// Aliases maps alternative spellings onto primitive names.
var Aliases = map[string]string{
	"int32":  "int",
	"uint32": "uint",
}

var primByKey = func() map[TypeKey]PrimInfo {
	m := make(map[TypeKey]PrimInfo, len(Primitives))
	for _, p := range Primitives {
		m[p.Key] = p
	}
	return m
}()

// Primitive reports the primitive description for key.
func Primitive(key TypeKey) (PrimInfo, bool) {
	p, ok := primByKey[key]
	return p, ok
}

// NumericKind returns the PrimKind of a numeric primitive key.
func NumericKind(key TypeKey) (PrimKind, bool) {
	p, ok := primByKey[key]
	if !ok || !p.Numeric {
		return 0, false
	}
	return p.Kind, true
}

// NumericKey is the inverse of NumericKind.
func NumericKey(kind PrimKind) TypeKey {
	for _, p := range Primitives {
		if p.Numeric && p.Kind == kind {
			return p.Key
		}
	}
	return NoKey
}

// IsSentinel reports whether key is one of null, ? or <error>.
func IsSentinel(key TypeKey) bool {
	return key == NullKey || key == AnyKey || key == ErrorKey
}
