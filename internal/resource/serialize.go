package resource

import (
	"encoding/base64"
	"fmt"

	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/jchantrell/bg3pak/internal/nested"
)

// Mode selects how attribute values are rendered
type Mode int

const (
	// ModeFull renders attribute content
	ModeFull Mode = iota
	// ModeShape renders every attribute as true, keeping only structure
	ModeShape
)

// DefaultMaxDepth bounds recursion when no explicit depth is configured
const DefaultMaxDepth = 1024

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	switch name {
	case "full":
		return ModeFull, nil
	case "shape":
		return ModeShape, nil
	default:
		return 0, fmt.Errorf("unknown serialization mode %q (full, shape)", name)
	}
}

func (m Mode) String() string {
	if m == ModeShape {
		return "shape"
	}
	return "full"
}

// Serializer projects an arena into nested values
type Serializer struct {
	Mode Mode
	// MaxDepth caps the recursion depth; 0 means DefaultMaxDepth
	MaxDepth int
}

// Serialize renders the subtree rooted at root using the default depth limit
func Serialize(a *Arena, root int, mode Mode) (*nested.Map, error) {
	return Serializer{Mode: mode}.Serialize(a, root)
}

// SerializeAll renders every region, keyed by region name in stored order
func SerializeAll(a *Arena, mode Mode) (*nested.Map, error) {
	return Serializer{Mode: mode}.SerializeAll(a)
}

// Serialize renders the subtree rooted at root. Each node becomes a map with
// exactly the keys "attributes" and "children".
func (s Serializer) Serialize(a *Arena, root int) (*nested.Map, error) {
	limit := s.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	return s.node(a, root, 0, limit)
}

// SerializeAll applies Serialize to every region root
func (s Serializer) SerializeAll(a *Arena) (*nested.Map, error) {
	out := nested.NewMap(len(a.roots))
	for _, name := range a.roots {
		v, err := s.Serialize(a, a.rootIndex[name])
		if err != nil {
			return nil, errs.WithName(err, name)
		}
		out.Set(name, v)
	}
	return out, nil
}

func (s Serializer) node(a *Arena, index, depth, limit int) (*nested.Map, error) {
	if depth >= limit {
		return nil, errs.Format("serialize", -1, "node %d exceeds depth limit %d", index, limit)
	}

	n, err := a.Node(index)
	if err != nil {
		return nil, err
	}

	attrs := nested.NewMap(len(n.n.attributes))
	for _, attr := range n.n.attributes {
		attrs.Set(attr.Name, s.leaf(attr.Attribute))
	}

	children := nested.NewMap(len(n.n.groups))
	for _, g := range n.n.groups {
		list := make([]any, 0, len(g.Children))
		for _, child := range g.Children {
			v, err := s.node(a, child, depth+1, limit)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		children.Set(g.Name, list)
	}

	out := nested.NewMap(2)
	out.Set("attributes", attrs)
	out.Set("children", children)
	return out, nil
}

func (s Serializer) leaf(attr Attribute) any {
	if s.Mode == ModeShape {
		return true
	}
	return Render(attr)
}

// Render converts an attribute value into a nested value
func Render(attr Attribute) any {
	switch v := attr.Value.(type) {
	case None:
		return nil
	case Int:
		return int64(v)
	case UInt:
		return uint64(v)
	case Float:
		return float64(v)
	case Bool:
		return bool(v)
	case String:
		return string(v)
	case IVec:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = int64(c)
		}
		return out
	case Vec:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = float64(c)
		}
		return out
	case Mat:
		rows := make([]any, v.Rows)
		for r := range rows {
			row := make([]any, v.Cols)
			for c := range row {
				row[c] = float64(v.Values[r*v.Cols+c])
			}
			rows[r] = row
		}
		return rows
	case Bytes:
		return base64.StdEncoding.EncodeToString(v)
	case UUID:
		return v.String()
	case TranslatedString:
		return renderTranslated(v)
	case TranslatedFSString:
		return renderTranslatedFS(v)
	default:
		return nil
	}
}

func renderTranslated(v TranslatedString) *nested.Map {
	m := nested.NewMap(2)
	m.Set("handle", v.Handle)
	if v.Legacy {
		m.Set("value", v.Value)
	} else {
		m.Set("version", uint64(v.Version))
	}
	return m
}

func renderTranslatedFS(v TranslatedFSString) *nested.Map {
	m := renderTranslated(v.TranslatedString)
	args := make([]any, len(v.Arguments))
	for i, arg := range v.Arguments {
		am := nested.NewMap(3)
		am.Set("key", arg.Key)
		am.Set("string", renderTranslatedFS(arg.String))
		am.Set("value", arg.Value)
		args[i] = am
	}
	m.Set("arguments", args)
	return m
}
