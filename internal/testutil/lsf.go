package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/jchantrell/bg3pak/internal/compress"
)

// LSFAttr is one raw attribute: a type tag and its encoded payload
type LSFAttr struct {
	Name string
	Type uint32
	Data []byte
}

// LSFNode is one node record. Parent is -1 for region roots and must refer
// to an earlier node otherwise (the builder does not check).
type LSFNode struct {
	Name   string
	Parent int32
	Key    string
	Attrs  []LSFAttr
}

// LSFOptions selects the layout written by BuildLSF
type LSFOptions struct {
	Version       uint32
	EngineVersion int64
	// Extended writes 16-byte node and attribute records
	Extended bool
	Method   compress.Method
	// Buckets spreads names over this many string table buckets (default 3)
	Buckets int
}

// BuildLSF encodes nodes as an LSF resource
func BuildLSF(t testing.TB, opts LSFOptions, nodes []LSFNode) []byte {
	t.Helper()

	if opts.Version == 0 {
		opts.Version = 7
	}
	if opts.Buckets == 0 {
		opts.Buckets = 3
	}

	table := newNameTable(opts.Buckets)
	for _, n := range nodes {
		table.add(n.Name)
		if n.Key != "" {
			table.add(n.Key)
		}
		for _, a := range n.Attrs {
			table.add(a.Name)
		}
	}

	var nodeBuf, attrBuf, valueBuf, keyBuf bytes.Buffer
	attrIndex := 0
	for i, n := range nodes {
		first := int32(-1)
		if len(n.Attrs) > 0 {
			first = int32(attrIndex)
		}

		if opts.Extended {
			le32(&nodeBuf, table.ref(n.Name))
			le32(&nodeBuf, uint32(n.Parent))
			le32(&nodeBuf, uint32(nextSibling(nodes, i)))
			le32(&nodeBuf, uint32(first))
		} else {
			le32(&nodeBuf, table.ref(n.Name))
			le32(&nodeBuf, uint32(first))
			le32(&nodeBuf, uint32(n.Parent))
		}

		for j, a := range n.Attrs {
			le32(&attrBuf, table.ref(a.Name))
			le32(&attrBuf, a.Type|uint32(len(a.Data))<<6)
			if opts.Extended {
				next := int32(-1)
				if j+1 < len(n.Attrs) {
					next = int32(attrIndex + 1)
				}
				le32(&attrBuf, uint32(next))
				le32(&attrBuf, uint32(valueBuf.Len()))
			} else {
				le32(&attrBuf, uint32(i))
			}
			valueBuf.Write(a.Data)
			attrIndex++
		}

		if n.Key != "" {
			le32(&keyBuf, uint32(i))
			le32(&keyBuf, table.ref(n.Key))
		}
	}

	chunked := opts.Version >= 2
	type section struct {
		raw     []byte
		chunked bool
	}
	stringsSec := section{table.encode(), false}
	keysSec := section{keyBuf.Bytes(), chunked}
	nodesSec := section{nodeBuf.Bytes(), chunked}
	attrsSec := section{attrBuf.Bytes(), chunked}
	valuesSec := section{valueBuf.Bytes(), chunked}
	if opts.Version < 7 {
		keysSec.raw = nil
	}

	encode := func(s section) (stored []byte, size, onDisk uint32) {
		if len(s.raw) == 0 {
			return nil, 0, 0
		}
		if opts.Method == compress.MethodNone {
			return s.raw, uint32(len(s.raw)), 0
		}
		packed := Compress(t, opts.Method, s.raw, s.chunked)
		return packed, uint32(len(s.raw)), uint32(len(packed))
	}

	var out bytes.Buffer
	out.WriteString("LSOF")
	le32(&out, opts.Version)
	if opts.Version >= 5 {
		le64(&out, uint64(opts.EngineVersion))
	} else {
		le32(&out, uint32(opts.EngineVersion))
	}

	order := []section{stringsSec, nodesSec, attrsSec, valuesSec}
	if opts.Version >= 6 {
		order = []section{stringsSec, keysSec, nodesSec, attrsSec, valuesSec}
	}
	for _, s := range order {
		_, size, onDisk := encode(s)
		le32(&out, size)
		le32(&out, onDisk)
	}

	out.WriteByte(byte(opts.Method))
	out.Write([]byte{0, 0, 0})
	if opts.Extended {
		le32(&out, 1)
	} else {
		le32(&out, 0)
	}

	body := []section{stringsSec, nodesSec, attrsSec, valuesSec}
	if opts.Version >= 7 {
		body = append(body, keysSec)
	}
	for _, s := range body {
		stored, _, _ := encode(s)
		out.Write(stored)
	}

	return out.Bytes()
}

func nextSibling(nodes []LSFNode, i int) int32 {
	for j := i + 1; j < len(nodes); j++ {
		if nodes[j].Parent == nodes[i].Parent {
			return int32(j)
		}
	}
	return -1
}

type nameTable struct {
	buckets [][]string
	refs    map[string]uint32
}

func newNameTable(n int) *nameTable {
	return &nameTable{buckets: make([][]string, n), refs: map[string]uint32{}}
}

func (nt *nameTable) add(name string) {
	if _, ok := nt.refs[name]; ok {
		return
	}
	b := len(nt.refs) % len(nt.buckets)
	nt.refs[name] = uint32(b)<<16 | uint32(len(nt.buckets[b]))
	nt.buckets[b] = append(nt.buckets[b], name)
}

func (nt *nameTable) ref(name string) uint32 {
	return nt.refs[name]
}

func (nt *nameTable) encode() []byte {
	var buf bytes.Buffer
	le32(&buf, uint32(len(nt.buckets)))
	for _, bucket := range nt.buckets {
		le16(&buf, uint16(len(bucket)))
		for _, s := range bucket {
			le16(&buf, uint16(len(s)))
			buf.WriteString(s)
		}
	}
	return buf.Bytes()
}

// Str encodes a NUL-terminated string payload
func Str(s string) []byte {
	return append([]byte(s), 0)
}

// U8 encodes a one-byte payload
func U8(v uint8) []byte { return []byte{v} }

// U32 encodes a little-endian uint32 payload
func U32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

// I32 encodes a little-endian int32 payload
func I32(v int32) []byte { return U32(uint32(v)) }

// U64 encodes a little-endian uint64 payload
func U64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

// F32s encodes a run of float32 components
func F32s(vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// LenStr encodes an int32 length prefix followed by s and a NUL
func LenStr(s string) []byte {
	b := Str(s)
	return append(I32(int32(len(b))), b...)
}

// Translated encodes a BG3-era TranslatedString payload
func Translated(version uint16, handle string) []byte {
	out := binary.LittleEndian.AppendUint16(nil, version)
	return append(out, LenStr(handle)...)
}
