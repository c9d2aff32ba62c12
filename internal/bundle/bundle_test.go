package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apkdebug/internal/archive"
)

func buildApk(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	a := archive.New()
	for name, data := range entries {
		a.Put(name, []byte(data))
	}
	buf, err := a.Serialize()
	require.NoError(t, err)
	return buf
}

func TestMergeBaseWins(t *testing.T) {
	base := buildApk(t, map[string]string{"res/x": "A"})
	split := buildApk(t, map[string]string{"res/x": "B", "res/y": "C"})

	top := archive.New()
	top.Put("base-master.apk", base)
	top.Put("split_config.zh.apk", split)

	require.True(t, IsBundle(top))

	merged, err := Merge(top)
	require.NoError(t, err)

	x, err := merged.Read("res/x")
	require.NoError(t, err)
	assert.Equal(t, "A", string(x))

	y, err := merged.Read("res/y")
	require.NoError(t, err)
	assert.Equal(t, "C", string(y))
}

func TestMergeStripsSplitMetaInf(t *testing.T) {
	base := buildApk(t, map[string]string{"res/x": "A"})
	split := buildApk(t, map[string]string{"META-INF/CERT.SF": "stale"})

	top := archive.New()
	top.Put("base.apk", base)
	top.Put("split.apk", split)

	merged, err := Merge(top)
	require.NoError(t, err)
	assert.False(t, merged.Has("META-INF/CERT.SF"))
}

func TestMergeEmptyBundle(t *testing.T) {
	top := archive.New()
	top.Put("readme.txt", []byte("hi"))
	_, err := Merge(top)
	assert.Error(t, err)
}

func TestSelectBaseExactName(t *testing.T) {
	nested := []nestedArchive{{name: "foo.apk"}, {name: "base.apk"}, {name: "bar.apk"}}
	assert.Equal(t, 1, selectBase(nested))
}
