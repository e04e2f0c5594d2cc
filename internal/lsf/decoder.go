package lsf

import (
	"github.com/jchantrell/bg3pak/internal/compress"
	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/resource"
)

const (
	nodeSizeV2      = 12
	nodeSizeV3      = 16
	attributeSizeV2 = 12
	attributeSizeV3 = 16
	keySize         = 8
)

// Options tunes limits applied while decoding
type Options struct {
	// MaxSectionSize bounds the inflated size of any one section
	MaxSectionSize uint32

	// MaxTranslatedDepth bounds TranslatedFSString argument nesting
	MaxTranslatedDepth int
}

// DefaultOptions returns the limits used by Decode
func DefaultOptions() Options {
	return Options{
		MaxSectionSize:     1 << 30,
		MaxTranslatedDepth: 64,
	}
}

// Decoder turns LSF bytes into a resource arena
type Decoder struct {
	opts Options
}

// NewDecoder returns a decoder with the given limits; zero fields take defaults
func NewDecoder(opts Options) *Decoder {
	def := DefaultOptions()
	if opts.MaxSectionSize == 0 {
		opts.MaxSectionSize = def.MaxSectionSize
	}
	if opts.MaxTranslatedDepth <= 0 {
		opts.MaxTranslatedDepth = def.MaxTranslatedDepth
	}
	return &Decoder{opts: opts}
}

// Decode parses an LSF resource with default limits
func Decode(data []byte) (*resource.Arena, error) {
	return NewDecoder(Options{}).Decode(data)
}

type nodeRecord struct {
	name           string
	parent         int32
	nextSibling    int32
	firstAttribute int32
}

type attributeRecord struct {
	name   string
	typ    resource.AttributeType
	length uint32
	// next for extended records, owning node for v2 records
	link   int32
	offset uint32
}

// Decode parses data in a single forward pass. On any error no arena is returned.
func (d *Decoder) Decode(data []byte) (*resource.Arena, error) {
	c := newCursor(data, "header", 0)
	h, _, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	method, _ := h.Compression()
	m := h.Metadata

	c.stage = "strings"
	rawNames, err := d.section(c, m.Strings, method, false)
	if err != nil {
		return nil, err
	}
	names, err := readNames(rawNames)
	if err != nil {
		return nil, err
	}

	chunked := h.Version >= VersionChunkedCompress

	c.stage = "nodes"
	rawNodes, err := d.section(c, m.Nodes, method, chunked)
	if err != nil {
		return nil, err
	}

	c.stage = "attributes"
	rawAttrs, err := d.section(c, m.Attributes, method, chunked)
	if err != nil {
		return nil, err
	}

	c.stage = "values"
	values, err := d.section(c, m.Values, method, chunked)
	if err != nil {
		return nil, err
	}

	var rawKeys []byte
	if h.Version >= VersionNodeKeys {
		c.stage = "keys"
		if rawKeys, err = d.section(c, m.Keys, method, chunked); err != nil {
			return nil, err
		}
	}

	nodes, err := readNodes(rawNodes, names, h.Extended())
	if err != nil {
		return nil, err
	}
	attrs, err := readAttributes(rawAttrs, names, h.Extended())
	if err != nil {
		return nil, err
	}

	b := resource.NewBuilder(len(nodes))
	nodeSize := nodeSizeV2
	if h.Extended() {
		nodeSize = nodeSizeV3
	}
	for i, n := range nodes {
		if _, err := b.AddNode(n.name, int(n.parent)); err != nil {
			return nil, errs.Format("nodes", int64(i*nodeSize), "%v", err)
		}
		if n.parent == -1 {
			if err := b.AddRoot(n.name, i); err != nil {
				return nil, errs.Format("nodes", int64(i*nodeSize), "%v", err)
			}
		}
	}

	vd := valueDecoder{version: h.Version, values: values, maxDepth: d.opts.MaxTranslatedDepth}
	if h.Extended() {
		err = attachChained(b, nodes, attrs, vd)
	} else {
		err = attachSequential(b, len(nodes), attrs, vd)
	}
	if err != nil {
		return nil, err
	}

	if err := attachKeys(b, rawKeys, names); err != nil {
		return nil, err
	}

	return b.Build(), nil
}

// section reads one stored section and inflates it if needed
func (d *Decoder) section(c *cursor, size SectionSize, method compress.Method, chunked bool) ([]byte, error) {
	if size.Uncompressed > d.opts.MaxSectionSize {
		return nil, c.errorf("section declares %d bytes, limit is %d", size.Uncompressed, d.opts.MaxSectionSize)
	}

	if size.OnDisk == 0 {
		return c.take(int(size.Uncompressed))
	}

	start := c.offset()
	stored, err := c.take(int(size.OnDisk))
	if err != nil {
		return nil, err
	}

	out, err := compress.Decompress(method, stored, int(size.Uncompressed), chunked)
	if err != nil {
		return nil, &errs.Error{Kind: errs.ErrDecompression, Stage: c.stage, Offset: start, Err: err}
	}
	return out, nil
}

// names is the string table: buckets of strings addressed by (bucket<<16 | index)
type names [][]string

func readNames(data []byte) (names, error) {
	if len(data) == 0 {
		return nil, nil
	}

	c := newCursor(data, "strings", 0)
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	// every bucket takes at least its 2-byte count
	if uint64(count)*2 > uint64(c.remaining()) {
		return nil, c.errorf("%d buckets cannot fit in %d bytes", count, c.remaining())
	}

	table := make(names, count)
	for i := range table {
		n, err := c.u16()
		if err != nil {
			return nil, err
		}
		bucket := make([]string, n)
		for j := range bucket {
			length, err := c.u16()
			if err != nil {
				return nil, err
			}
			b, err := c.take(int(length))
			if err != nil {
				return nil, err
			}
			bucket[j] = string(b)
		}
		table[i] = bucket
	}
	return table, nil
}

func (t names) resolve(ref uint32) (string, bool) {
	bucket, index := int(ref>>16), int(ref&0xFFFF)
	if bucket >= len(t) || index >= len(t[bucket]) {
		return "", false
	}
	return t[bucket][index], true
}

func readNodes(data []byte, table names, extended bool) ([]nodeRecord, error) {
	size := nodeSizeV2
	if extended {
		size = nodeSizeV3
	}
	if len(data)%size != 0 {
		return nil, errs.Format("nodes", int64(len(data)), "section length %d is not a multiple of %d", len(data), size)
	}

	c := newCursor(data, "nodes", 0)
	nodes := make([]nodeRecord, len(data)/size)
	for i := range nodes {
		start := c.offset()
		ref, _ := c.u32()
		var n nodeRecord
		if extended {
			n.parent, _ = c.i32()
			n.nextSibling, _ = c.i32()
			n.firstAttribute, _ = c.i32()
		} else {
			n.firstAttribute, _ = c.i32()
			n.parent, _ = c.i32()
		}

		name, ok := table.resolve(ref)
		if !ok {
			return nil, errs.Format("nodes", start, "node %d: name reference 0x%08x out of range", i, ref)
		}
		n.name = name
		nodes[i] = n
	}

	if extended {
		if err := checkSiblings(nodes); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// checkSiblings requires every sibling link to be -1 or to name a later node
// under the same parent. Child order itself comes from parent links.
func checkSiblings(nodes []nodeRecord) error {
	for i, n := range nodes {
		next := n.nextSibling
		if next == -1 {
			continue
		}
		if next <= int32(i) || int(next) >= len(nodes) {
			return errs.Format("nodes", int64(i*nodeSizeV3+8), "node %d: next sibling %d out of range", i, next)
		}
		if nodes[next].parent != n.parent {
			return errs.Format("nodes", int64(i*nodeSizeV3+8), "node %d: next sibling %d has parent %d, want %d", i, next, nodes[next].parent, n.parent)
		}
	}
	return nil
}

func readAttributes(data []byte, table names, extended bool) ([]attributeRecord, error) {
	size := attributeSizeV2
	if extended {
		size = attributeSizeV3
	}
	if len(data)%size != 0 {
		return nil, errs.Format("attributes", int64(len(data)), "section length %d is not a multiple of %d", len(data), size)
	}

	c := newCursor(data, "attributes", 0)
	attrs := make([]attributeRecord, len(data)/size)
	for i := range attrs {
		start := c.offset()
		ref, _ := c.u32()
		typeAndLength, _ := c.u32()
		var a attributeRecord
		a.link, _ = c.i32()
		if extended {
			a.offset, _ = c.u32()
		}

		name, ok := table.resolve(ref)
		if !ok {
			return nil, errs.Format("attributes", start, "attribute %d: name reference 0x%08x out of range", i, ref)
		}
		a.name = name
		a.typ = resource.AttributeType(typeAndLength & 0x3F)
		a.length = typeAndLength >> 6
		if !a.typ.Valid() {
			return nil, errs.Format("attributes", start, "attribute %d (%s): unknown attribute type %d", i, name, uint32(a.typ))
		}
		attrs[i] = a
	}
	return attrs, nil
}

// attachChained follows each node's attribute chain (extended layout)
func attachChained(b *resource.Builder, nodes []nodeRecord, attrs []attributeRecord, vd valueDecoder) error {
	for i, n := range nodes {
		next := n.firstAttribute
		for steps := 0; next != -1; steps++ {
			if next < 0 || int(next) >= len(attrs) {
				return errs.Format("nodes", int64(i*nodeSizeV3), "node %d: attribute index %d out of range", i, next)
			}
			if steps >= len(attrs) {
				return errs.Format("attributes", int64(next)*attributeSizeV3, "node %d: attribute chain loops", i)
			}
			a := attrs[next]
			if err := vd.attach(b, i, a, a.offset); err != nil {
				return err
			}
			next = a.link
		}
	}
	return nil
}

// attachSequential assigns v2 attributes to their owning nodes in stored
// order; their values are packed back to back.
func attachSequential(b *resource.Builder, nodeCount int, attrs []attributeRecord, vd valueDecoder) error {
	var offset uint64
	for i, a := range attrs {
		if a.link < 0 || int(a.link) >= nodeCount {
			return errs.Format("attributes", int64(i*attributeSizeV2), "attribute %d: node index %d out of range", i, a.link)
		}
		if offset > uint64(len(vd.values)) {
			return errs.Format("values", int64(offset), "attribute %d: value offset beyond section", i)
		}
		if err := vd.attach(b, int(a.link), a, uint32(offset)); err != nil {
			return err
		}
		offset += uint64(a.length)
	}
	return nil
}

func attachKeys(b *resource.Builder, data []byte, table names) error {
	if len(data)%keySize != 0 {
		return errs.Format("keys", int64(len(data)), "section length %d is not a multiple of %d", len(data), keySize)
	}
	c := newCursor(data, "keys", 0)
	for c.remaining() > 0 {
		start := c.offset()
		node, _ := c.u32()
		ref, _ := c.u32()
		key, ok := table.resolve(ref)
		if !ok {
			return errs.Format("keys", start, "key name reference 0x%08x out of range", ref)
		}
		if int64(node) >= int64(b.Len()) {
			return errs.Format("keys", start, "key %s: node index %d out of range", key, node)
		}
		if err := b.SetKey(int(node), key); err != nil {
			return errs.Format("keys", start, "%v", err)
		}
	}
	return nil
}
