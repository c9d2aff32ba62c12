package axml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFactsDoc() *Document {
	sp := &stringPool{strings: []string{
		"manifest", "package", "com.example.app", "versionCode",
		"versionName", "1.0", "uses-sdk", "minSdkVersion",
		"targetSdkVersion", "uses-permission", "name",
		"android.permission.INTERNET", "application",
	}}

	manifestStart := &startElement{nameIdx: 0, attributes: []attribute{
		{nameIdx: 1, rawValueIdx: 2, val: stringValue(2)},
		{nameIdx: 3, rawValueIdx: noIndex, val: intValue(7)},
		{nameIdx: 4, rawValueIdx: 5, val: stringValue(5)},
	}}
	usesSdkStart := &startElement{nameIdx: 6, attributes: []attribute{
		{nameIdx: 7, rawValueIdx: noIndex, val: intValue(21)},
		{nameIdx: 8, rawValueIdx: noIndex, val: intValue(33)},
	}}
	usesPermStart := &startElement{nameIdx: 9, attributes: []attribute{
		{nameIdx: 10, rawValueIdx: 11, val: stringValue(11)},
	}}
	applicationStart := &startElement{nameIdx: 12}

	return &Document{
		strings:      sp,
		namespaceURI: noIndex,
		nodes: []element{
			manifestStart,
			usesSdkStart,
			&endElement{nameIdx: 6},
			usesPermStart,
			&endElement{nameIdx: 9},
			applicationStart,
			&endElement{nameIdx: 12},
			&endElement{nameIdx: 0},
		},
	}
}

func TestFactsExtraction(t *testing.T) {
	doc := buildFactsDoc()
	f, err := doc.Facts()
	require.NoError(t, err)

	assert.Equal(t, "com.example.app", f.Package)
	assert.Equal(t, int32(7), f.VersionCode)
	assert.Equal(t, "1.0", f.VersionName)
	assert.Equal(t, int32(21), f.MinSdk)
	assert.Equal(t, int32(33), f.TargetSdk)
	assert.Equal(t, []string{"INTERNET"}, f.Permissions)
	assert.False(t, f.IsDebuggable)
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := buildFactsDoc()
	buf := doc.Bytes()

	doc2, err := Parse(buf)
	require.NoError(t, err)
	buf2 := doc2.Bytes()

	assert.True(t, bytes.Equal(buf, buf2), "re-encoding an unmodified document must reproduce the same bytes")
}

func buildDebuggableDoc(withAttribute bool) *Document {
	sp := &stringPool{strings: []string{"debuggable", androidNamespaceURI, "manifest", "application"}}

	var appAttrs []attribute
	var rm *resourceMap
	if withAttribute {
		rm = &resourceMap{ids: []uint32{DebuggableAttrID}}
		appAttrs = []attribute{
			{namespaceIdx: 1, nameIdx: 0, rawValueIdx: noIndex, val: boolValue(false)},
		}
	}

	return &Document{
		strings:      sp,
		resources:    rm,
		namespaceURI: 1,
		nodes: []element{
			&startElement{nameIdx: 2},
			&startElement{nameIdx: 3, attributes: appAttrs},
			&endElement{nameIdx: 3},
			&endElement{nameIdx: 2},
		},
	}
}

func TestSetDebuggableInPlace(t *testing.T) {
	original := buildDebuggableDoc(true).Bytes()

	doc, err := Parse(original)
	require.NoError(t, err)

	patched, result, err := doc.SetDebuggable(original)
	require.NoError(t, err)
	assert.Equal(t, "in-place", result.Strategy)
	assert.Equal(t, 4, result.BytesPatched)
	require.Len(t, patched, len(original))

	diffs := 0
	for i := range original {
		if original[i] != patched[i] {
			diffs++
		}
	}
	assert.Equal(t, 4, diffs, "in-place patch must change exactly the 4-byte data word")

	reparsed, err := Parse(patched)
	require.NoError(t, err)
	facts, err := reparsed.Facts()
	require.NoError(t, err)
	assert.True(t, facts.IsDebuggable)
}

func TestSetDebuggableStructural(t *testing.T) {
	original := buildDebuggableDoc(false).Bytes()

	doc, err := Parse(original)
	require.NoError(t, err)

	patched, result, err := doc.SetDebuggable(original)
	require.NoError(t, err)
	assert.Equal(t, "structural", result.Strategy)

	reparsed, err := Parse(patched)
	require.NoError(t, err)
	facts, err := reparsed.Facts()
	require.NoError(t, err)
	assert.True(t, facts.IsDebuggable)
}

func TestScanAndPatchFallback(t *testing.T) {
	buf := append(utf16LE("debuggable"), []byte{8, 0, 0, typeIntBoolean, 0, 0, 0, 0}...)

	patched, applied := ScanAndPatch(buf)
	require.True(t, applied)

	tail := patched[len(patched)-4:]
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, tail)
}

func TestScanAndPatchNoMatch(t *testing.T) {
	_, applied := ScanAndPatch([]byte("no manifest attributes here"))
	assert.False(t, applied)
}
