package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method identifies the codec used for a package entry or an LSF section.
// Values are the low nibble of the on-disk compression flags.
type Method uint8

const (
	MethodNone Method = 0
	MethodZlib Method = 1
	MethodLZ4  Method = 2
	MethodZstd Method = 3
)

// ErrUnknownMethod is returned by ParseMethod for flags outside the known set.
var ErrUnknownMethod = errors.New("unknown compression method")

// ErrSizeMismatch is returned when inflated output disagrees with the declared size.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

// ParseMethod extracts the compression method from on-disk flags. The high
// nibble carries the compression level and is ignored.
func ParseMethod(flags uint32) (Method, error) {
	m := Method(flags & 0x0F)
	switch m {
	case MethodNone, MethodZlib, MethodLZ4, MethodZstd:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownMethod, m)
	}
}

// String returns the lower-case codec name.
func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodZlib:
		return "zlib"
	case MethodLZ4:
		return "lz4"
	case MethodZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// zstd decoders are safe for concurrent DecodeAll calls, so one is shared.
var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// Decompress inflates src into exactly size bytes. chunked selects the LZ4
// frame format instead of a raw LZ4 block; it is ignored by other methods.
// Any failure, including output that is shorter or longer than size, is
// returned as an error and no partial output is produced.
func Decompress(m Method, src []byte, size int, chunked bool) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative uncompressed size %d", size)
	}

	switch m {
	case MethodNone:
		if len(src) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrSizeMismatch, len(src), size)
		}
		return src, nil

	case MethodZlib:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("zlib header: %w", err)
		}
		defer zr.Close()
		return readExactly(zr, size)

	case MethodLZ4:
		if chunked {
			return readExactly(lz4.NewReader(bytes.NewReader(src)), size)
		}
		return decompressLZ4Block(src, size)

	case MethodZstd:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(src, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, len(out), size)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, uint8(m))
	}
}

func decompressLZ4Block(src []byte, size int) ([]byte, error) {
	if size == 0 {
		if len(src) > 1 {
			return nil, fmt.Errorf("%w: %d compressed bytes for empty output", ErrSizeMismatch, len(src))
		}
		return []byte{}, nil
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 block: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, n, size)
	}
	return out, nil
}

// readExactly reads size bytes from r and verifies the stream ends there.
func readExactly(r io.Reader, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: stream ended before %d bytes", ErrSizeMismatch, size)
		}
		return nil, err
	}

	var probe [1]byte
	n, err := r.Read(probe[:])
	if n > 0 {
		return nil, fmt.Errorf("%w: stream longer than %d bytes", ErrSizeMismatch, size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}
