package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSerializeRoundTrip(t *testing.T) {
	a := New()
	a.Put("a/x", []byte{0x00})
	a.Put("a/y", []byte{0x01})
	buf, err := a.Serialize()
	require.NoError(t, err)

	loaded, err := Load(buf)
	require.NoError(t, err)

	got, err := loaded.Read("a/x")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, got)

	got, err = loaded.Read("a/y")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, got)
}

func TestPutOverwritesPreservesOrder(t *testing.T) {
	a := New()
	a.Put("one", []byte("1"))
	a.Put("two", []byte("2"))
	a.Put("one", []byte("1-updated"))

	names := []string{}
	for _, e := range a.Enumerate() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"one", "two"}, names)

	got, err := a.Read("one")
	require.NoError(t, err)
	assert.Equal(t, []byte("1-updated"), got)
}

func TestRemove(t *testing.T) {
	a := New()
	a.Put("META-INF/MANIFEST.MF", []byte("x"))
	a.Put("META-INF/services/foo", []byte("y"))
	a.Put("META-INF/OLD.RSA", []byte("z"))

	a.RemoveMatching(func(name string) bool {
		return name == "META-INF/MANIFEST.MF" || name == "META-INF/OLD.RSA"
	})

	assert.False(t, a.Has("META-INF/MANIFEST.MF"))
	assert.False(t, a.Has("META-INF/OLD.RSA"))
	assert.True(t, a.Has("META-INF/services/foo"))
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	a := New()
	_, err := a.Read("nope")
	assert.Error(t, err)
}

func TestSerializeDeterministic(t *testing.T) {
	build := func() *Archive {
		a := New()
		a.Put("a", []byte("1"))
		a.Put("b", []byte("2"))
		a.Put("c", []byte("3"))
		return a
	}
	buf1, err := build().Serialize()
	require.NoError(t, err)
	buf2, err := build().Serialize()
	require.NoError(t, err)
	assert.Equal(t, buf1, buf2)
}
