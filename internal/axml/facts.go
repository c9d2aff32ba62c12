package axml

import "strings"

// ManifestFacts is the subset of AndroidManifest.xml fields the
// pipeline reports back to the caller, independent of whether the
// manifest was fully parsed or only byte-scanned.
type ManifestFacts struct {
	Package      string
	VersionCode  int32
	VersionName  string
	MinSdk       int32
	TargetSdk    int32
	IsDebuggable bool
	Permissions  []string
}

// Facts walks the parsed document and extracts the fields a caller
// needs without forcing them to understand the chunk format.
func (doc *Document) Facts() (ManifestFacts, error) {
	root, err := doc.manifestElement()
	if err != nil {
		return ManifestFacts{}, err
	}

	var f ManifestFacts
	for _, a := range root.attributes {
		name, err := doc.stringAt(a.nameIdx)
		if err != nil {
			return ManifestFacts{}, err
		}
		switch name {
		case "package":
			f.Package, err = doc.attrStringValue(a)
			if err != nil {
				return ManifestFacts{}, err
			}
		case "versionCode":
			if a.val.isInt() {
				f.VersionCode = a.val.intResult()
			}
		case "versionName":
			f.VersionName, err = doc.attrStringValue(a)
			if err != nil {
				return ManifestFacts{}, err
			}
		}
	}

	f.IsDebuggable = doc.applicationDebuggable()
	f.MinSdk, f.TargetSdk = doc.sdkVersions()
	f.Permissions = doc.usesPermissions()
	return f, nil
}

// attrStringValue resolves an attribute's value to a string,
// preferring the raw-value pool reference when present.
func (doc *Document) attrStringValue(a attribute) (string, error) {
	if a.rawValueIdx != noIndex {
		return doc.stringAt(a.rawValueIdx)
	}
	if a.val.isString() {
		return doc.stringAt(int32(a.val.data))
	}
	return "", nil
}

func (doc *Document) applicationDebuggable() bool {
	for _, n := range doc.nodes {
		se, ok := n.(*startElement)
		if !ok {
			continue
		}
		name, err := doc.stringAt(se.nameIdx)
		if err != nil || name != "application" {
			continue
		}
		if doc.resources == nil {
			continue
		}
		a, ok := se.attributeByResourceID(doc.resources, DebuggableAttrID)
		if !ok {
			continue
		}
		return a.val.isBoolean() && a.val.boolResult()
	}
	return false
}

func (doc *Document) sdkVersions() (minSdk, targetSdk int32) {
	for _, n := range doc.nodes {
		se, ok := n.(*startElement)
		if !ok {
			continue
		}
		name, err := doc.stringAt(se.nameIdx)
		if err != nil || name != "uses-sdk" {
			continue
		}
		for _, a := range se.attributes {
			attrName, err := doc.stringAt(a.nameIdx)
			if err != nil {
				continue
			}
			switch attrName {
			case "minSdkVersion":
				if a.val.isInt() {
					minSdk = a.val.intResult()
				}
			case "targetSdkVersion":
				if a.val.isInt() {
					targetSdk = a.val.intResult()
				}
			}
		}
	}
	return minSdk, targetSdk
}

func (doc *Document) usesPermissions() []string {
	var perms []string
	for _, n := range doc.nodes {
		se, ok := n.(*startElement)
		if !ok {
			continue
		}
		name, err := doc.stringAt(se.nameIdx)
		if err != nil || name != "uses-permission" {
			continue
		}
		for _, a := range se.attributes {
			attrName, err := doc.stringAt(a.nameIdx)
			if err != nil || attrName != "name" {
				continue
			}
			v, err := doc.attrStringValue(a)
			if err != nil || v == "" {
				continue
			}
			perms = append(perms, strings.TrimPrefix(v, "android.permission."))
		}
	}
	return perms
}
