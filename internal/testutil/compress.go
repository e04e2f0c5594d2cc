// Package testutil writes LSPK packages and LSF resources for tests.
package testutil

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/jchantrell/bg3pak/internal/compress"
)

// Compress encodes data with m. chunked selects an LZ4 frame instead of a block.
func Compress(t testing.TB, m compress.Method, data []byte, chunked bool) []byte {
	t.Helper()

	switch m {
	case compress.MethodNone:
		return append([]byte(nil), data...)

	case compress.MethodZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			t.Fatalf("zlib write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zlib close: %v", err)
		}
		return buf.Bytes()

	case compress.MethodLZ4:
		if chunked {
			var buf bytes.Buffer
			lw := lz4.NewWriter(&buf)
			if _, err := lw.Write(data); err != nil {
				t.Fatalf("lz4 frame write: %v", err)
			}
			if err := lw.Close(); err != nil {
				t.Fatalf("lz4 frame close: %v", err)
			}
			return buf.Bytes()
		}
		return LZ4Block(t, data)

	case compress.MethodZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil)

	default:
		t.Fatalf("unsupported method %v", m)
		return nil
	}
}

// LZ4Block encodes data as a single LZ4 block. Inputs the library refuses to
// compress are emitted as one literal-only sequence, which is still valid.
func LZ4Block(t testing.TB, data []byte) []byte {
	t.Helper()

	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		t.Fatalf("lz4 block: %v", err)
	}
	if n > 0 {
		return dst[:n]
	}
	return literalBlock(data)
}

func literalBlock(data []byte) []byte {
	lit := len(data)
	out := make([]byte, 0, lit+lit/255+2)
	if lit < 15 {
		out = append(out, byte(lit<<4))
	} else {
		out = append(out, 0xF0)
		rest := lit - 15
		for rest >= 255 {
			out = append(out, 255)
			rest -= 255
		}
		out = append(out, byte(rest))
	}
	return append(out, data...)
}
