// Package axml implements a read/patch/rewrite codec for Android's
// compiled binary XML format, the layout AndroidManifest.xml is
// compiled to inside an application archive: a chunked binary
// container with an indexed string pool, a resource-identifier table,
// and a stream of element chunks whose attributes reference pool
// entries by integer index.
//
// The chunk framing (ResChunk_header: type, headerSize, dataSize) and
// the string-pool / resource-map / element chunk shapes below mirror
// the format documented in AOSP frameworks/base's androidfw
// ResourceTypes.h and exercised by aapt2's XmlFlattener. Decoding
// supports both the UTF-16 and UTF-8 string pool encodings; encoding
// always regenerates chunk sizes and offsets rather than trusting
// stale header fields, since any payload-length change invalidates
// every downstream size and offset recorded in earlier headers.
package axml

const (
	fileMagic = 0x00080003 // ResXMLTree_header: type=0x0003, headerSize=8

	chunkStringPool    = 0x0001
	chunkXMLStart      = 0x0003 // handled via fileMagic, kept for documentation
	chunkResourceMap   = 0x0180
	chunkStartNS       = 0x0100
	chunkEndNS         = 0x0101
	chunkStartElement  = 0x0102
	chunkEndElement    = 0x0103
	chunkCData         = 0x0104

	attributeRecordSize = 20 // namespace(4) + name(4) + rawValue(4) + typedValue(8)
	startElementFixed   = 20 // namespace(4) + name(4) + attrStart(2) + attrSize(2) + attrCount(2) + id/class/style(2*3)

	// DebuggableAttrID is the resource identifier for android:debuggable.
	DebuggableAttrID uint32 = 0x0101000f

	androidNamespaceURI = "http://schemas.android.com/apk/res/android"
)

// Value type tags, per the android.util.TypedValue / Res_value format.
const (
	typeNull       uint8 = 0x00
	typeReference  uint8 = 0x01
	typeAttribute  uint8 = 0x02
	typeString     uint8 = 0x03
	typeFloat      uint8 = 0x04
	typeDimension  uint8 = 0x05
	typeFraction   uint8 = 0x06
	typeIntDec     uint8 = 0x10
	typeIntHex     uint8 = 0x11
	typeIntBoolean uint8 = 0x12
)

const noIndex = -1 // attribute/comment reference meaning "absent"
