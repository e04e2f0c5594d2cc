package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchantrell/bg3pak/internal/errs"
)

// buildSample returns Root{Name="Foo"} with two Item children, the first of
// which has a nested Slot child, plus a second empty region.
func buildSample(t *testing.T) *Arena {
	t.Helper()
	b := NewBuilder(5)

	root, err := b.AddNode("Root", -1)
	require.NoError(t, err)
	require.NoError(t, b.AddRoot("Root", root))
	require.NoError(t, b.SetAttribute(root, "Name", Attribute{Type: TypeLSString, Value: String("Foo")}))

	first, err := b.AddNode("Item", root)
	require.NoError(t, err)
	require.NoError(t, b.SetAttribute(first, "Count", Attribute{Type: TypeInt, Value: Int(3)}))
	require.NoError(t, b.SetKey(first, "Count"))

	second, err := b.AddNode("Item", root)
	require.NoError(t, err)
	require.NoError(t, b.SetAttribute(second, "Count", Attribute{Type: TypeInt, Value: Int(4)}))

	slot, err := b.AddNode("Slot", first)
	require.NoError(t, err)
	require.NoError(t, b.SetAttribute(slot, "Pos", Attribute{Type: TypeVec3, Value: Vec{1, 2, 3}}))

	config, err := b.AddNode("Config", -1)
	require.NoError(t, err)
	require.NoError(t, b.AddRoot("Config", config))

	return b.Build()
}

func TestArenaQueries(t *testing.T) {
	a := buildSample(t)

	assert.Equal(t, 5, a.Len())
	assert.Equal(t, []string{"Root", "Config"}, a.RootNames())

	root, err := a.RootIndex("Root")
	require.NoError(t, err)

	n, err := a.Node(root)
	require.NoError(t, err)
	assert.Equal(t, "Root", n.Name())
	assert.Equal(t, -1, n.Parent())
	assert.Equal(t, []int{1, 2}, n.Children("Item"))
	assert.Nil(t, n.Children("Missing"))

	attr, ok := n.Attribute("Name")
	require.True(t, ok)
	assert.Equal(t, String("Foo"), attr.Value)

	item, err := a.Node(1)
	require.NoError(t, err)
	assert.Equal(t, "Count", item.Key())
	assert.Equal(t, 0, item.Parent())

	_, err = a.RootIndex("Globals")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestArenaIndexValidity(t *testing.T) {
	a := buildSample(t)

	var walk func(int)
	walk = func(i int) {
		n, err := a.Node(i)
		require.NoError(t, err)
		for _, g := range n.Groups() {
			for _, c := range g.Children {
				assert.Greater(t, c, i)
				walk(c)
			}
		}
	}
	for _, name := range a.RootNames() {
		i, err := a.RootIndex(name)
		require.NoError(t, err)
		walk(i)
	}

	for _, i := range []int{a.Len(), a.Len() + 10, -1} {
		_, err := a.Node(i)
		assert.ErrorIs(t, err, errs.ErrIndex, "index %d", i)
	}
}

func TestArenaViewsAreCopies(t *testing.T) {
	a := buildSample(t)
	n, err := a.Node(0)
	require.NoError(t, err)

	groups := n.Groups()
	groups[0].Children[0] = 99
	attrs := n.Attributes()
	attrs[0].Name = "Changed"
	names := a.RootNames()
	names[0] = "Changed"

	assert.Equal(t, []int{1, 2}, n.Children("Item"))
	assert.Equal(t, "Name", n.Attributes()[0].Name)
	assert.Equal(t, "Root", a.RootNames()[0])
}

func TestBuilderRejectsInvalidInput(t *testing.T) {
	b := NewBuilder(2)

	_, err := b.AddNode("Orphan", 0)
	assert.Error(t, err, "parent must already exist")

	root, err := b.AddNode("Root", -1)
	require.NoError(t, err)

	_, err = b.AddNode("Self", 1)
	assert.Error(t, err, "forward parent reference")

	require.NoError(t, b.SetAttribute(root, "A", Attribute{Type: TypeBool, Value: Bool(true)}))
	assert.Error(t, b.SetAttribute(root, "A", Attribute{Type: TypeBool, Value: Bool(false)}))
	assert.Error(t, b.SetAttribute(root, "B", Attribute{Type: TypeBool, Value: Int(1)}))
	assert.Error(t, b.SetAttribute(5, "C", Attribute{Type: TypeNone, Value: None{}}))

	child, err := b.AddNode("Child", root)
	require.NoError(t, err)
	assert.Error(t, b.AddRoot("Child", child))

	require.NoError(t, b.AddRoot("Root", root))
	assert.Error(t, b.AddRoot("Root", root))
}

func TestAttributeValidate(t *testing.T) {
	valid := []Attribute{
		{Type: TypeNone, Value: None{}},
		{Type: TypeByte, Value: UInt(1)},
		{Type: TypeInt8, Value: Int(-1)},
		{Type: TypeDouble, Value: Float(1.5)},
		{Type: TypeFixedString, Value: String("x")},
		{Type: TypeIVec2, Value: IVec{1, 2}},
		{Type: TypeMat3x4, Value: Mat{Cols: 3, Rows: 4, Values: make([]float32, 12)}},
		{Type: TypeScratchBuffer, Value: Bytes{1}},
		{Type: TypeUUID, Value: UUID{}},
		{Type: TypeTranslatedString, Value: TranslatedString{Handle: "h"}},
		{Type: TypeTranslatedFSString, Value: TranslatedFSString{}},
	}
	for _, a := range valid {
		assert.NoError(t, a.Validate(), a.Type.String())
	}

	invalid := []Attribute{
		{Type: TypeVec3, Value: Vec{1, 2}},
		{Type: TypeMat2, Value: Mat{Cols: 3, Rows: 3, Values: make([]float32, 9)}},
		{Type: TypeString, Value: Bytes("x")},
		{Type: TypeUInt, Value: Int(1)},
	}
	for _, a := range invalid {
		assert.Error(t, a.Validate(), a.Type.String())
	}
}

func TestAttributeTypeMetadata(t *testing.T) {
	assert.Equal(t, "LSString", TypeLSString.String())
	assert.Equal(t, "guid", TypeUUID.String())
	assert.Equal(t, "unknown(40)", AttributeType(40).String())
	assert.False(t, AttributeType(34).Valid())
	assert.Equal(t, 64, TypeMat4.Size())
	assert.Equal(t, -1, TypeString.Size())
	assert.True(t, TypeLSWString.IsString())
	assert.False(t, TypeTranslatedString.IsString())
}

func TestUUIDString(t *testing.T) {
	u := UUID{
		0x33, 0x22, 0x11, 0x00,
		0x55, 0x44,
		0x77, 0x66,
		0x99, 0x88, 0xbb, 0xaa, 0xdd, 0xcc, 0xff, 0xee,
	}
	assert.Equal(t, "00112233-4455-6677-8899-aabbccddeeff", u.String())
}
