package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jchantrell/bg3pak/internal/compress"
	"github.com/jchantrell/bg3pak/internal/errs"
)

// MaxEntrySize bounds the declared uncompressed size of a single entry.
const MaxEntrySize = 1 << 31

// Package is an opened LSPK archive. The entry index is parsed once at open
// time; entry data is read and inflated on demand. A Package is read-only and
// safe for concurrent ReadEntry calls.
type Package struct {
	path    string
	data    io.ReaderAt
	closer  io.Closer
	size    int64
	header  Header
	entries []Entry
	byName  map[string]int
}

// Open opens the package at path and parses its header and file list
func Open(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.IO("stat", path, err)
	}

	p, err := newPackage(f, info.Size(), path)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closer = f

	return p, nil
}

// NewReader parses a package held by r. Entries stored in additional archive
// parts cannot be read from a package opened this way.
func NewReader(r io.ReaderAt, size int64) (*Package, error) {
	return newPackage(r, size, "")
}

func newPackage(r io.ReaderAt, size int64, path string) (*Package, error) {
	header, err := readHeader(r, size)
	if err != nil {
		return nil, err
	}

	entries, err := readFileList(r, size, header)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, exists := byName[e.Name]; exists {
			return nil, errs.Format("file list", int64(header.FileListOffset), "duplicate entry name %q", e.Name)
		}
		byName[e.Name] = i
	}

	return &Package{
		path:    path,
		data:    r,
		size:    size,
		header:  header,
		entries: entries,
		byName:  byName,
	}, nil
}

func readHeader(r io.ReaderAt, size int64) (Header, error) {
	var h Header

	if size < headerSizeV15 {
		return h, errs.Format("header", 0, "file too small: %d bytes", size)
	}

	buf := make([]byte, headerSizeV16)
	n, err := r.ReadAt(buf[:min(int64(len(buf)), size)], 0)
	if n < headerSizeV15 {
		return h, errs.IO("read header", "", err)
	}

	if string(buf[:4]) != Signature {
		return h, errs.Format("header", 0, "bad signature %q", buf[:4])
	}

	h.Version = binary.LittleEndian.Uint32(buf[4:])
	switch h.Version {
	case Version15, Version16, Version18:
	default:
		return h, errs.Format("header", 4, "unsupported package version %d", h.Version)
	}

	h.FileListOffset = binary.LittleEndian.Uint64(buf[8:])
	h.FileListSize = binary.LittleEndian.Uint32(buf[16:])
	h.Flags = buf[20]
	h.Priority = buf[21]
	copy(h.Md5[:], buf[22:38])

	if h.Version >= Version16 {
		if n < headerSizeV16 {
			return h, errs.Format("header", 38, "truncated header")
		}
		h.NumParts = binary.LittleEndian.Uint16(buf[38:])
	}

	if h.FileListOffset > uint64(size) || uint64(h.FileListSize) > uint64(size)-h.FileListOffset {
		return h, errs.Format("header", 8, "file list [%d, +%d) exceeds file size %d", h.FileListOffset, h.FileListSize, size)
	}

	return h, nil
}

func readFileList(r io.ReaderAt, size int64, h Header) ([]Entry, error) {
	base := int64(h.FileListOffset)

	raw := make([]byte, h.FileListSize)
	if n, err := r.ReadAt(raw, base); n != len(raw) {
		return nil, errs.IO("read file list", "", err)
	}

	if len(raw) < 4 {
		return nil, errs.Format("file list", base, "truncated file count")
	}
	numFiles := binary.LittleEndian.Uint32(raw)

	if len(raw) < 8 {
		return nil, errs.Format("file list", base+4, "truncated compressed size")
	}
	cs := binary.LittleEndian.Uint32(raw[4:])
	if uint64(cs) > uint64(len(raw)-8) {
		return nil, errs.Format("file list", base+4, "compressed size %d exceeds file list size %d", cs, len(raw)-8)
	}
	compressed := raw[8 : 8+cs]

	entrySize := entrySizeV15
	if h.Version >= Version18 {
		entrySize = entrySizeV18
	}

	// LZ4 cannot expand more than 255:1; anything beyond is a corrupt count.
	expected := uint64(numFiles) * uint64(entrySize)
	if expected > uint64(len(compressed))*255+16 {
		return nil, errs.Format("file list", base, "%d entries cannot fit in %d compressed bytes", numFiles, len(compressed))
	}

	table, err := compress.Decompress(compress.MethodLZ4, compressed, int(expected), false)
	if err != nil {
		return nil, errs.Decompression("file list", err)
	}

	entries := make([]Entry, numFiles)
	for i := range entries {
		rec := table[i*entrySize : (i+1)*entrySize]
		var e Entry
		if h.Version >= Version18 {
			e = parseEntryV18(rec)
		} else {
			e = parseEntryV15(rec)
		}

		if e.Name == "" {
			return nil, errs.Format("file list", int64(i*entrySize), "entry %d has an empty name", i)
		}

		m, err := compress.ParseMethod(e.Flags)
		if err != nil {
			return nil, errs.Format("file list", int64(i*entrySize), "entry %q: %v", e.Name, err)
		}
		e.Compression = m
		if m == compress.MethodNone || e.UncompressedSize == 0 {
			e.Compression = compress.MethodNone
			e.UncompressedSize = e.SizeOnDisk
		}

		if e.UncompressedSize > MaxEntrySize || e.SizeOnDisk > MaxEntrySize {
			return nil, errs.Format("file list", int64(i*entrySize), "entry %q declares %d bytes", e.Name, e.UncompressedSize)
		}

		if e.ArchivePart == 0 && (e.Offset > uint64(size) || e.SizeOnDisk > uint64(size)-e.Offset) {
			return nil, errs.Format("file list", int64(i*entrySize), "entry %q [%d, +%d) exceeds file size %d", e.Name, e.Offset, e.SizeOnDisk, size)
		}

		entries[i] = e
	}

	return entries, nil
}

func parseEntryV15(rec []byte) Entry {
	return Entry{
		Name:             entryName(rec[:nameLength]),
		Offset:           binary.LittleEndian.Uint64(rec[256:]),
		SizeOnDisk:       binary.LittleEndian.Uint64(rec[264:]),
		UncompressedSize: binary.LittleEndian.Uint64(rec[272:]),
		ArchivePart:      binary.LittleEndian.Uint32(rec[280:]),
		Flags:            binary.LittleEndian.Uint32(rec[284:]),
	}
}

func parseEntryV18(rec []byte) Entry {
	low := uint64(binary.LittleEndian.Uint32(rec[256:]))
	high := uint64(binary.LittleEndian.Uint16(rec[260:]))
	return Entry{
		Name:             entryName(rec[:nameLength]),
		Offset:           low | high<<32,
		ArchivePart:      uint32(rec[262]),
		Flags:            uint32(rec[263]),
		SizeOnDisk:       uint64(binary.LittleEndian.Uint32(rec[264:])),
		UncompressedSize: uint64(binary.LittleEndian.Uint32(rec[268:])),
	}
}

func entryName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Header returns the parsed package header
func (p *Package) Header() Header {
	return p.header
}

// Path returns the file the package was opened from, if any
func (p *Package) Path() string {
	return p.path
}

// ListEntries returns entry names in index order
func (p *Package) ListEntries() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entry index
func (p *Package) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Entry looks up a single entry descriptor by exact name
func (p *Package) Entry(name string) (Entry, error) {
	i, ok := p.byName[name]
	if !ok {
		return Entry{}, errs.NotFound("entry", name)
	}
	return p.entries[i], nil
}

// ReadEntry reads the named entry and returns its decompressed contents.
// The returned buffer is owned by the caller; nothing is cached.
func (p *Package) ReadEntry(name string) ([]byte, error) {
	e, err := p.Entry(name)
	if err != nil {
		return nil, err
	}

	r, size, release, err := p.part(e.ArchivePart)
	if err != nil {
		return nil, errs.WithName(err, name)
	}
	defer release()

	if e.Offset > uint64(size) || e.SizeOnDisk > uint64(size)-e.Offset {
		return nil, &errs.Error{
			Kind:   errs.ErrFormat,
			Stage:  "entry",
			Name:   name,
			Offset: int64(e.Offset),
			Err:    fmt.Errorf("%d stored bytes exceed archive part %d size %d", e.SizeOnDisk, e.ArchivePart, size),
		}
	}

	stored := make([]byte, e.SizeOnDisk)
	if n, err := r.ReadAt(stored, int64(e.Offset)); n != len(stored) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, errs.IO("read entry", name, err)
	}

	if e.Stored() {
		return stored, nil
	}

	out, err := compress.Decompress(e.Compression, stored, int(e.UncompressedSize), false)
	if err != nil {
		return nil, errs.WithName(errs.Decompression("entry", err), name)
	}
	return out, nil
}

// OpenEntry is ReadEntry wrapped in a reader
func (p *Package) OpenEntry(name string) (io.Reader, error) {
	data, err := p.ReadEntry(name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Close releases the underlying file
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	if err != nil {
		return errs.IO("close", p.path, err)
	}
	return nil
}

// part returns a reader over the given archive part. Part files other than
// the package itself are opened per call and closed by release.
func (p *Package) part(n uint32) (io.ReaderAt, int64, func(), error) {
	if n == 0 {
		return p.data, p.size, func() {}, nil
	}

	if p.path == "" {
		return nil, 0, nil, errs.IO("open part", "", fmt.Errorf("archive part %d unavailable for in-memory package", n))
	}

	partPath := PartPath(p.path, n)
	f, err := os.Open(partPath)
	if err != nil {
		return nil, 0, nil, errs.IO("open part", partPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, errs.IO("stat part", partPath, err)
	}

	return f, info.Size(), func() { f.Close() }, nil
}

// PartPath returns the file name of archive part n for the package at path,
// e.g. Gustav.pak -> Gustav_1.pak
func PartPath(path string, n uint32) string {
	if n == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}
