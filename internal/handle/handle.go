// Package handle exposes packages and decoded arenas as reference-counted
// opaque values. Node indices and raw buffers never leave this package.
package handle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/lsf"
	"github.com/jchantrell/bg3pak/internal/nested"
	"github.com/jchantrell/bg3pak/internal/pak"
	"github.com/jchantrell/bg3pak/internal/resource"
)

var (
	// ErrReleased is returned when a handle is used after its last reference dropped
	ErrReleased = errors.New("handle released")
	// ErrKind is returned when an operation is given the wrong kind of handle
	ErrKind = errors.New("wrong handle kind")
)

// Kind tags what a handle wraps
type Kind int

const (
	KindPackage Kind = iota + 1
	KindArena
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindArena:
		return "arena"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handle is an opaque, reference-counted package or arena
type Handle struct {
	kind  Kind
	label string

	mu    sync.Mutex
	refs  int
	pkg   *pak.Package
	arena *resource.Arena
}

// OpenPackage opens the package at path and returns a handle holding one reference
func OpenPackage(path string) (*Handle, error) {
	p, err := pak.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Opened package", "path", path, "entries", len(p.Entries()), "version", p.Header().Version)
	return &Handle{kind: KindPackage, label: path, refs: 1, pkg: p}, nil
}

// LoadResource reads and decodes entry from a package handle. The returned
// arena handle is independent of pkg and may outlive it.
func LoadResource(pkg *Handle, entry string) (*Handle, error) {
	return LoadResourceWith(pkg, entry, lsf.NewDecoder(lsf.Options{}))
}

// LoadResourceWith is LoadResource with an explicit decoder
func LoadResourceWith(pkg *Handle, entry string, dec *lsf.Decoder) (*Handle, error) {
	p, done, err := pkg.acquirePackage()
	if err != nil {
		return nil, err
	}
	defer done()

	data, err := p.ReadEntry(entry)
	if err != nil {
		return nil, err
	}

	arena, err := dec.Decode(data)
	if err != nil {
		return nil, errs.WithName(err, entry)
	}
	slog.Debug("Decoded resource", "entry", entry, "nodes", arena.Len(), "regions", len(arena.RootNames()))
	return &Handle{kind: KindArena, label: entry, refs: 1, arena: arena}, nil
}

// Entries lists entry names of a package handle in stored order
func Entries(h *Handle) ([]string, error) {
	p, done, err := h.acquirePackage()
	if err != nil {
		return nil, err
	}
	defer done()
	return p.ListEntries(), nil
}

// Regions lists region names of an arena handle in stored order
func Regions(h *Handle) ([]string, error) {
	a, err := h.acquireArena()
	if err != nil {
		return nil, err
	}
	return a.RootNames(), nil
}

// Serialize renders every region of an arena handle
func Serialize(h *Handle, mode resource.Mode) (*nested.Map, error) {
	return SerializeWith(h, "", resource.Serializer{Mode: mode})
}

// SerializeRegion renders the named region of an arena handle
func SerializeRegion(h *Handle, region string, mode resource.Mode) (*nested.Map, error) {
	return SerializeWith(h, region, resource.Serializer{Mode: mode})
}

// SerializeWith renders one region, or every region when region is empty,
// with an explicit serializer
func SerializeWith(h *Handle, region string, s resource.Serializer) (*nested.Map, error) {
	a, err := h.acquireArena()
	if err != nil {
		return nil, err
	}
	if region == "" {
		return s.SerializeAll(a)
	}
	root, err := a.RootIndex(region)
	if err != nil {
		return nil, errs.WithName(err, region)
	}
	return s.Serialize(a, root)
}

// Kind reports what the handle wraps
func (h *Handle) Kind() Kind {
	return h.kind
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s(%s)", h.kind, h.label)
}

// Retain adds a reference
func (h *Handle) Retain() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return ErrReleased
	}
	h.refs++
	return nil
}

// Release drops a reference. Dropping the last reference of a package
// handle closes the package file.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return ErrReleased
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}

	slog.Debug("Released handle", "handle", h.String())
	h.arena = nil
	if h.pkg != nil {
		err := h.pkg.Close()
		h.pkg = nil
		return err
	}
	return nil
}

// acquirePackage pins the package for the duration of one call
func (h *Handle) acquirePackage() (*pak.Package, func(), error) {
	if h == nil {
		return nil, nil, ErrReleased
	}
	if h.kind != KindPackage {
		return nil, nil, fmt.Errorf("%w: want %s, got %s", ErrKind, KindPackage, h.kind)
	}
	if err := h.Retain(); err != nil {
		return nil, nil, err
	}
	h.mu.Lock()
	p := h.pkg
	h.mu.Unlock()
	return p, func() { _ = h.Release() }, nil
}

func (h *Handle) acquireArena() (*resource.Arena, error) {
	if h == nil {
		return nil, ErrReleased
	}
	if h.kind != KindArena {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrKind, KindArena, h.kind)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refs == 0 {
		return nil, ErrReleased
	}
	return h.arena, nil
}
