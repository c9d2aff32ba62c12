package axml

// BuildManifestFixture constructs a minimal compiled AndroidManifest.xml
// buffer, for packages that exercise a full manifest without needing to
// understand the chunk format themselves. debuggable, if non-nil, adds
// an android:debuggable attribute on <application> with that boolean value.
func BuildManifestFixture(pkgName string, debuggable *bool) []byte {
	sp := &stringPool{strings: []string{
		"debuggable", androidNamespaceURI, "manifest", "package", pkgName, "application",
	}}

	var rm *resourceMap
	var appAttrs []attribute
	if debuggable != nil {
		rm = &resourceMap{ids: []uint32{DebuggableAttrID}}
		appAttrs = []attribute{
			{namespaceIdx: 1, nameIdx: 0, rawValueIdx: noIndex, val: boolValue(*debuggable)},
		}
	}

	doc := &Document{
		strings:      sp,
		resources:    rm,
		namespaceURI: 1,
		nodes: []element{
			&startElement{nameIdx: 2, attributes: []attribute{
				{nameIdx: 3, rawValueIdx: 4, val: stringValue(4)},
			}},
			&startElement{nameIdx: 5, attributes: appAttrs},
			&endElement{nameIdx: 5},
			&endElement{nameIdx: 2},
		},
	}
	return doc.Bytes()
}
