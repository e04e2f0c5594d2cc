package lsf

import (
	"encoding/binary"
	"math"

	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/resource"
)

type valueDecoder struct {
	version  uint32
	values   []byte
	maxDepth int
}

// attach decodes the payload of a at offset and stores it on node
func (vd valueDecoder) attach(b *resource.Builder, node int, a attributeRecord, offset uint32) error {
	end := uint64(offset) + uint64(a.length)
	if end > uint64(len(vd.values)) {
		return errs.Format("values", int64(offset), "attribute %s: %d bytes exceed values section of %d", a.name, a.length, len(vd.values))
	}

	c := newCursor(vd.values[offset:end], "values", int64(offset))
	v, err := vd.decode(c, a.typ)
	if err != nil {
		return err
	}
	if c.remaining() != 0 {
		return c.errorf("attribute %s (%s): %d trailing bytes", a.name, a.typ, c.remaining())
	}

	if err := b.SetAttribute(node, a.name, resource.Attribute{Type: a.typ, Value: v}); err != nil {
		return errs.Format("values", int64(offset), "%v", err)
	}
	return nil
}

func (vd valueDecoder) decode(c *cursor, t resource.AttributeType) (resource.Value, error) {
	if size := t.Size(); size >= 0 && c.remaining() != size {
		return nil, c.errorf("%s payload is %d bytes, want %d", t, c.remaining(), size)
	}

	switch t {
	case resource.TypeNone:
		return resource.None{}, nil

	case resource.TypeByte:
		v, err := c.u8()
		return resource.UInt(v), err
	case resource.TypeUShort:
		v, err := c.u16()
		return resource.UInt(v), err
	case resource.TypeUInt:
		v, err := c.u32()
		return resource.UInt(v), err
	case resource.TypeULongLong:
		v, err := c.u64()
		return resource.UInt(v), err

	case resource.TypeInt8:
		v, err := c.u8()
		return resource.Int(int8(v)), err
	case resource.TypeShort:
		v, err := c.u16()
		return resource.Int(int16(v)), err
	case resource.TypeInt:
		v, err := c.i32()
		return resource.Int(v), err
	case resource.TypeLong, resource.TypeInt64:
		v, err := c.u64()
		return resource.Int(int64(v)), err

	case resource.TypeFloat:
		v, err := c.f32()
		return resource.Float(v), err
	case resource.TypeDouble:
		v, err := c.u64()
		return resource.Float(math.Float64frombits(v)), err

	case resource.TypeBool:
		v, err := c.u8()
		return resource.Bool(v != 0), err

	case resource.TypeIVec2, resource.TypeIVec3, resource.TypeIVec4:
		cols, _ := t.Shape()
		out := make(resource.IVec, cols)
		for i := range out {
			out[i], _ = c.i32()
		}
		return out, nil

	case resource.TypeVec2, resource.TypeVec3, resource.TypeVec4:
		cols, _ := t.Shape()
		return resource.Vec(readFloats(c, cols)), nil

	case resource.TypeMat2, resource.TypeMat3, resource.TypeMat3x4, resource.TypeMat4x3, resource.TypeMat4:
		cols, rows := t.Shape()
		return resource.Mat{Cols: cols, Rows: rows, Values: readFloats(c, cols*rows)}, nil

	case resource.TypeString, resource.TypePath, resource.TypeFixedString,
		resource.TypeLSString, resource.TypeWString, resource.TypeLSWString:
		b, _ := c.take(c.remaining())
		return resource.String(trimNul(b)), nil

	case resource.TypeScratchBuffer:
		b, _ := c.take(c.remaining())
		return resource.Bytes(append([]byte(nil), b...)), nil

	case resource.TypeUUID:
		var u resource.UUID
		b, _ := c.take(16)
		copy(u[:], b)
		return u, nil

	case resource.TypeTranslatedString:
		return vd.translated(c)

	case resource.TypeTranslatedFSString:
		return vd.translatedFS(c, 0)

	default:
		return nil, c.errorf("unknown attribute type %d", uint32(t))
	}
}

// readFloats reads n float32s; the caller has already checked the length
func readFloats(c *cursor, n int) []float32 {
	b, _ := c.take(n * 4)
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func (vd valueDecoder) translated(c *cursor) (resource.TranslatedString, error) {
	ts := resource.TranslatedString{Legacy: vd.version < VersionBG3}
	var err error

	if ts.Legacy {
		if ts.Value, err = c.str(); err != nil {
			return ts, err
		}
	} else {
		if ts.Version, err = c.u16(); err != nil {
			return ts, err
		}
	}

	ts.Handle, err = c.str()
	return ts, err
}

func (vd valueDecoder) translatedFS(c *cursor, depth int) (resource.TranslatedFSString, error) {
	var fs resource.TranslatedFSString
	if depth >= vd.maxDepth {
		return fs, c.errorf("TranslatedFSString nesting exceeds %d", vd.maxDepth)
	}

	ts, err := vd.translated(c)
	if err != nil {
		return fs, err
	}
	fs.TranslatedString = ts

	count, err := c.i32()
	if err != nil {
		return fs, err
	}
	// each argument needs at least three length prefixes
	if count < 0 || int64(count)*12 > int64(c.remaining()) {
		return fs, c.errorf("invalid argument count %d", count)
	}

	fs.Arguments = make([]resource.TranslatedFSArgument, count)
	for i := range fs.Arguments {
		arg := &fs.Arguments[i]
		if arg.Key, err = c.str(); err != nil {
			return fs, err
		}
		if arg.String, err = vd.translatedFS(c, depth+1); err != nil {
			return fs, err
		}
		if arg.Value, err = c.str(); err != nil {
			return fs, err
		}
	}
	return fs, nil
}
