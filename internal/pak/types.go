package pak

import "github.com/jchantrell/bg3pak/internal/compress"

// Signature is the magic at the start of every supported package.
const Signature = "LSPK"

// Supported package versions
const (
	Version15 uint32 = 15
	Version16 uint32 = 16
	Version18 uint32 = 18
)

const (
	nameLength    = 256
	entrySizeV15  = nameLength + 8 + 8 + 8 + 4 + 4 + 4 + 4
	entrySizeV18  = nameLength + 4 + 2 + 1 + 1 + 4 + 4
	headerSizeV15 = 4 + 4 + 8 + 4 + 1 + 1 + 16
	headerSizeV16 = headerSizeV15 + 2
)

// Header is the fixed package header that follows the signature
type Header struct {
	Version        uint32
	FileListOffset uint64
	FileListSize   uint32
	Flags          uint8
	Priority       uint8
	Md5            [16]byte
	NumParts       uint16
}

// Entry describes one named record in the package index
type Entry struct {
	// Name is the opaque lookup key, usually a slash separated path
	Name string

	// Offset is the position of the stored bytes inside the archive part
	Offset uint64

	// SizeOnDisk is the number of stored (possibly compressed) bytes
	SizeOnDisk uint64

	// UncompressedSize is the inflated length; equal to SizeOnDisk for stored entries
	UncompressedSize uint64

	// ArchivePart selects the file holding the data; 0 is the package itself
	ArchivePart uint32

	// Flags is the raw on-disk flag word
	Flags uint32

	// Compression is decoded from the low nibble of Flags
	Compression compress.Method
}

// Stored reports whether the entry is kept without compression
func (e Entry) Stored() bool {
	return e.Compression == compress.MethodNone
}
