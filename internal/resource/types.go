package resource

import "fmt"

// AttributeType is the on-disk type tag of an attribute. The set is closed;
// decoders reject anything Valid reports false for.
type AttributeType uint32

const (
	TypeNone               AttributeType = 0
	TypeByte               AttributeType = 1
	TypeShort              AttributeType = 2
	TypeUShort             AttributeType = 3
	TypeInt                AttributeType = 4
	TypeUInt               AttributeType = 5
	TypeFloat              AttributeType = 6
	TypeDouble             AttributeType = 7
	TypeIVec2              AttributeType = 8
	TypeIVec3              AttributeType = 9
	TypeIVec4              AttributeType = 10
	TypeVec2               AttributeType = 11
	TypeVec3               AttributeType = 12
	TypeVec4               AttributeType = 13
	TypeMat2               AttributeType = 14
	TypeMat3               AttributeType = 15
	TypeMat3x4             AttributeType = 16
	TypeMat4x3             AttributeType = 17
	TypeMat4               AttributeType = 18
	TypeBool               AttributeType = 19
	TypeString             AttributeType = 20
	TypePath               AttributeType = 21
	TypeFixedString        AttributeType = 22
	TypeLSString           AttributeType = 23
	TypeULongLong          AttributeType = 24
	TypeScratchBuffer      AttributeType = 25
	TypeLong               AttributeType = 26
	TypeInt8               AttributeType = 27
	TypeTranslatedString   AttributeType = 28
	TypeWString            AttributeType = 29
	TypeLSWString          AttributeType = 30
	TypeUUID               AttributeType = 31
	TypeInt64              AttributeType = 32
	TypeTranslatedFSString AttributeType = 33
)

var typeNames = [...]string{
	"None", "uint8", "int16", "uint16", "int32", "uint32", "float", "double",
	"ivec2", "ivec3", "ivec4", "fvec2", "fvec3", "fvec4",
	"mat2x2", "mat3x3", "mat3x4", "mat4x3", "mat4x4", "bool",
	"string", "path", "FixedString", "LSString", "uint64", "ScratchBuffer",
	"old_int64", "int8", "TranslatedString", "WString", "LSWString",
	"guid", "int64", "TranslatedFSString",
}

// Valid reports whether t is one of the known attribute types
func (t AttributeType) Valid() bool {
	return t <= TypeTranslatedFSString
}

// String returns the type name used in LSX documents
func (t AttributeType) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// Size returns the fixed payload width in bytes, or -1 for variable-width types
func (t AttributeType) Size() int {
	switch t {
	case TypeNone:
		return 0
	case TypeByte, TypeBool, TypeInt8:
		return 1
	case TypeShort, TypeUShort:
		return 2
	case TypeInt, TypeUInt, TypeFloat:
		return 4
	case TypeDouble, TypeULongLong, TypeLong, TypeInt64:
		return 8
	case TypeIVec2, TypeVec2:
		return 8
	case TypeIVec3, TypeVec3:
		return 12
	case TypeIVec4, TypeVec4, TypeMat2, TypeUUID:
		return 16
	case TypeMat3:
		return 36
	case TypeMat3x4, TypeMat4x3:
		return 48
	case TypeMat4:
		return 64
	default:
		return -1
	}
}

// Columns and rows of vector and matrix types; (0, 0) for everything else.
func (t AttributeType) Shape() (cols, rows int) {
	switch t {
	case TypeIVec2, TypeVec2:
		return 2, 1
	case TypeIVec3, TypeVec3:
		return 3, 1
	case TypeIVec4, TypeVec4:
		return 4, 1
	case TypeMat2:
		return 2, 2
	case TypeMat3:
		return 3, 3
	case TypeMat3x4:
		return 3, 4
	case TypeMat4x3:
		return 4, 3
	case TypeMat4:
		return 4, 4
	default:
		return 0, 0
	}
}

// IsString reports whether t carries a plain string payload
func (t AttributeType) IsString() bool {
	switch t {
	case TypeString, TypePath, TypeFixedString, TypeLSString, TypeWString, TypeLSWString:
		return true
	default:
		return false
	}
}
