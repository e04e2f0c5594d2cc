package resource

import (
	"encoding/binary"
	"fmt"
)

// Value is the decoded payload of an attribute. The concrete types below are
// the only implementations; Attribute.Type says which on-disk kind produced it.
type Value interface {
	isValue()
}

// None is the payload of TypeNone
type None struct{}

// Int holds Short, Int, Long, Int64 and Int8 payloads
type Int int64

// UInt holds Byte, UShort, UInt and ULongLong payloads
type UInt uint64

// Float holds Float and Double payloads
type Float float64

// Bool holds a Bool payload
type Bool bool

// String holds String, Path, FixedString, LSString, WString and LSWString payloads
type String string

// IVec holds IVec2, IVec3 and IVec4 payloads
type IVec []int32

// Vec holds Vec2, Vec3 and Vec4 payloads
type Vec []float32

// Mat holds matrix payloads in row-major order
type Mat struct {
	Cols   int
	Rows   int
	Values []float32
}

// Bytes holds a ScratchBuffer payload
type Bytes []byte

// UUID holds the 16 raw bytes of a guid attribute
type UUID [16]byte

// TranslatedString references a localization handle. Legacy strings
// (LSF before v4) carry an inline Value instead of a Version.
type TranslatedString struct {
	Version uint16
	Value   string
	Handle  string
	Legacy  bool
}

// TranslatedFSString is a TranslatedString with named format arguments
type TranslatedFSString struct {
	TranslatedString
	Arguments []TranslatedFSArgument
}

// TranslatedFSArgument is one key/value argument of a TranslatedFSString
type TranslatedFSArgument struct {
	Key    string
	String TranslatedFSString
	Value  string
}

func (None) isValue()               {}
func (Int) isValue()                {}
func (UInt) isValue()               {}
func (Float) isValue()              {}
func (Bool) isValue()               {}
func (String) isValue()             {}
func (IVec) isValue()               {}
func (Vec) isValue()                {}
func (Mat) isValue()                {}
func (Bytes) isValue()              {}
func (UUID) isValue()               {}
func (TranslatedString) isValue()   {}
func (TranslatedFSString) isValue() {}

// String formats the guid the way the game tools print it: the first three
// groups little-endian, the last eight bytes swapped pairwise.
func (u UUID) String() string {
	var tail [8]byte
	for i := 0; i < 8; i += 2 {
		tail[i], tail[i+1] = u[8+i+1], u[8+i]
	}
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(u[0:4]),
		binary.LittleEndian.Uint16(u[4:6]),
		binary.LittleEndian.Uint16(u[6:8]),
		tail[0:2],
		tail[2:8],
	)
}

// Attribute is a typed value attached to a node
type Attribute struct {
	Type  AttributeType
	Value Value
}

// Validate checks that Value is the concrete type Type decodes to, and that
// vector and matrix payloads have the right number of components.
func (a Attribute) Validate() error {
	ok := false
	switch v := a.Value.(type) {
	case None:
		ok = a.Type == TypeNone
	case Int:
		ok = a.Type == TypeShort || a.Type == TypeInt || a.Type == TypeLong || a.Type == TypeInt64 || a.Type == TypeInt8
	case UInt:
		ok = a.Type == TypeByte || a.Type == TypeUShort || a.Type == TypeUInt || a.Type == TypeULongLong
	case Float:
		ok = a.Type == TypeFloat || a.Type == TypeDouble
	case Bool:
		ok = a.Type == TypeBool
	case String:
		ok = a.Type.IsString()
	case IVec:
		cols, _ := a.Type.Shape()
		ok = (a.Type == TypeIVec2 || a.Type == TypeIVec3 || a.Type == TypeIVec4) && len(v) == cols
	case Vec:
		cols, _ := a.Type.Shape()
		ok = (a.Type == TypeVec2 || a.Type == TypeVec3 || a.Type == TypeVec4) && len(v) == cols
	case Mat:
		cols, rows := a.Type.Shape()
		ok = a.Type >= TypeMat2 && a.Type <= TypeMat4 && v.Cols == cols && v.Rows == rows && len(v.Values) == cols*rows
	case Bytes:
		ok = a.Type == TypeScratchBuffer
	case UUID:
		ok = a.Type == TypeUUID
	case TranslatedString:
		ok = a.Type == TypeTranslatedString
	case TranslatedFSString:
		ok = a.Type == TypeTranslatedFSString
	}
	if !ok {
		return fmt.Errorf("value %T does not match attribute type %s", a.Value, a.Type)
	}
	return nil
}
