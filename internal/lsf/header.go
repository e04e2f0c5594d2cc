package lsf

import (
	"github.com/jchantrell/bg3pak/internal/compress"
)

// Signature is the magic at the start of every LSF resource
const Signature = "LSOF"

// Format versions that change the layout
const (
	VersionInitial         uint32 = 1
	VersionChunkedCompress uint32 = 2
	VersionExtendedNodes   uint32 = 3
	VersionBG3             uint32 = 4
	VersionExtendedHeader  uint32 = 5
	VersionAdditionalBlob  uint32 = 6
	VersionNodeKeys        uint32 = 7
)

// SectionSize is the stored and inflated length of one section
type SectionSize struct {
	Uncompressed uint32
	OnDisk       uint32
}

// Metadata lists section sizes and how they are encoded
type Metadata struct {
	Strings    SectionSize
	Keys       SectionSize
	Nodes      SectionSize
	Attributes SectionSize
	Values     SectionSize

	CompressionFlags uint8

	// Format is metadataFormat for version >= 6 and hasSiblingData before that
	Format uint32
}

// Header is the decoded LSF preamble
type Header struct {
	Version       uint32
	EngineVersion int64
	Metadata      Metadata
}

// Extended reports whether nodes and attributes use the 16-byte layouts
func (h Header) Extended() bool {
	return h.Metadata.Format == 1
}

// Compression returns the codec used by compressed sections
func (h Header) Compression() (compress.Method, error) {
	return compress.ParseMethod(uint32(h.Metadata.CompressionFlags))
}

// DecodeHeader parses only the signature, version and metadata of an LSF buffer
func DecodeHeader(data []byte) (Header, error) {
	h, _, err := readHeader(newCursor(data, "header", 0))
	return h, err
}

func readHeader(c *cursor) (Header, int, error) {
	var h Header

	sig, err := c.take(4)
	if err != nil {
		return h, 0, err
	}
	if string(sig) != Signature {
		return h, 0, c.errorf("bad signature %q", sig)
	}

	if h.Version, err = c.u32(); err != nil {
		return h, 0, err
	}
	if h.Version < VersionInitial || h.Version > VersionNodeKeys {
		return h, 0, c.errorf("unsupported LSF version %d", h.Version)
	}

	if h.Version >= VersionExtendedHeader {
		v, err := c.u64()
		if err != nil {
			return h, 0, err
		}
		h.EngineVersion = int64(v)
	} else {
		v, err := c.u32()
		if err != nil {
			return h, 0, err
		}
		h.EngineVersion = int64(v)
	}

	m := &h.Metadata
	sections := []*SectionSize{&m.Strings, &m.Nodes, &m.Attributes, &m.Values}
	if h.Version >= VersionAdditionalBlob {
		sections = []*SectionSize{&m.Strings, &m.Keys, &m.Nodes, &m.Attributes, &m.Values}
	}
	for _, s := range sections {
		if s.Uncompressed, err = c.u32(); err != nil {
			return h, 0, err
		}
		if s.OnDisk, err = c.u32(); err != nil {
			return h, 0, err
		}
	}

	if m.CompressionFlags, err = c.u8(); err != nil {
		return h, 0, err
	}
	if _, err = c.take(3); err != nil {
		return h, 0, err
	}
	if m.Format, err = c.u32(); err != nil {
		return h, 0, err
	}

	if _, err := h.Compression(); err != nil {
		return h, 0, c.errorf("%v", err)
	}

	return h, c.pos, nil
}
