package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		want string
	}{
		{"io", IO("open", "a.pak", io.ErrUnexpectedEOF), ErrIO, "IoError"},
		{"format", Format("nodes", 12, "bad parent %d", 7), ErrFormat, "FormatError"},
		{"not found", NotFound("entry", "Globals.lsf"), ErrNotFound, "NotFoundError"},
		{"decompression", Decompression("entry", io.EOF), ErrDecompression, "DecompressionError"},
		{"index", Index(9, 3), ErrIndex, "IndexError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.want, KindName(tt.err))
		})
	}
}

func TestErrorKeepsCause(t *testing.T) {
	err := IO("open", "a.pak", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrFormat)
}

func TestFormatMessageNamesStageAndOffset(t *testing.T) {
	err := Format("attributes", 0x1c, "unknown attribute type %d", 45)
	assert.Equal(t, "format error: attributes at offset 0x1c: unknown attribute type 45", err.Error())
}

func TestWithName(t *testing.T) {
	err := WithName(Format("header", 0, "bad signature"), "Globals.lsf")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Globals.lsf", e.Name)
	assert.Contains(t, err.Error(), `("Globals.lsf")`)

	wrapped := WithName(io.EOF, "level1.lsf")
	assert.ErrorIs(t, wrapped, io.EOF)
	assert.Contains(t, wrapped.Error(), "level1.lsf")

	assert.NoError(t, WithName(nil, "x"))
	assert.Equal(t, "error", KindName(io.EOF))
}
