package lsf

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/jchantrell/bg3pak/internal/errs"
)

// cursor is a bounds-checked little-endian reader over one buffer. Every
// failure is a format error naming the stage and the absolute offset.
type cursor struct {
	data  []byte
	pos   int
	base  int64
	stage string
}

func newCursor(data []byte, stage string, base int64) *cursor {
	return &cursor{data: data, stage: stage, base: base}
}

func (c *cursor) offset() int64 {
	return c.base + int64(c.pos)
}

func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

func (c *cursor) errorf(format string, args ...any) error {
	return errs.Format(c.stage, c.offset(), format, args...)
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, c.errorf("need %d bytes, %d left", n, c.remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	return math.Float32frombits(v), err
}

// str reads an i32 length followed by that many bytes of string data
func (c *cursor) str() (string, error) {
	n, err := c.i32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", c.errorf("negative string length %d", n)
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return trimNul(b), nil
}

func trimNul(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
