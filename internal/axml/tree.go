package axml

import (
	"golang.org/x/exp/errors/fmt"

	"apkdebug/internal/apkerr"
)

// Document is a parsed compiled-XML buffer: the string pool, the
// optional resource-id table, and the element stream in file order.
// Re-encoding an unmodified Document via Bytes reproduces the original
// buffer exactly.
type Document struct {
	strings   *stringPool
	resources *resourceMap // nil if the document carries no resource map
	nodes     []element

	// namespaceURI caches the pool index of the android namespace URI,
	// used as the namespace of an inserted debuggable attribute.
	namespaceURI int
}

// Parse decodes buf as a compiled binary XML document (AOSP
// ResourceTypes.h's RES_XML_TYPE container).
func Parse(buf []byte) (*Document, error) {
	c := newCursor(buf)
	magic, err := c.u16()
	if err != nil {
		return nil, err
	}
	headerSize, err := c.u16()
	if err != nil {
		return nil, err
	}
	totalSize, err := c.u32()
	if err != nil {
		return nil, err
	}
	if uint32(magic)|uint32(headerSize)<<16 != fileMagic {
		return nil, apkerr.InvalidMagic
	}
	if int(totalSize) > len(buf) {
		return nil, apkerr.TruncatedChunk
	}

	doc := &Document{namespaceURI: noIndex}
	pos := int(headerSize)
	for pos < int(totalSize) {
		n, consumed, err := doc.parseChunk(buf, pos)
		if err != nil {
			return nil, err
		}
		if n != nil {
			doc.nodes = append(doc.nodes, n)
		}
		pos += consumed
	}
	if doc.strings == nil {
		return nil, apkerr.MalformedArchive
	}
	return doc, nil
}

// parseChunk decodes the chunk starting at buf[pos], returning the
// element to append (nil for the string pool and resource map, which
// are stored on doc directly) and the number of bytes consumed.
func (doc *Document) parseChunk(buf []byte, pos int) (element, int, error) {
	c := newCursor(buf[pos:])
	chunkType, err := c.u16()
	if err != nil {
		return nil, 0, err
	}
	headerSize, err := c.u16()
	if err != nil {
		return nil, 0, err
	}
	chunkSize, err := c.u32()
	if err != nil {
		return nil, 0, err
	}
	if int(chunkSize) < int(headerSize) || pos+int(chunkSize) > len(buf) {
		return nil, 0, apkerr.TruncatedChunk
	}
	header := buf[pos+8 : pos+int(headerSize)]
	data := buf[pos+int(headerSize) : pos+int(chunkSize)]
	dataAbsOffset := pos + int(headerSize)

	var el element
	switch chunkType {
	case chunkStringPool:
		sp, err := decodeStringPool(header, data)
		if err != nil {
			return nil, 0, err
		}
		doc.strings = sp
		if idx, ok := sp.find(androidNamespaceURI); ok {
			doc.namespaceURI = idx
		}
	case chunkResourceMap:
		rm, err := decodeResourceMap(data)
		if err != nil {
			return nil, 0, err
		}
		doc.resources = rm
	case chunkStartNS:
		el, err = decodeStartNamespace(header, data)
	case chunkEndNS:
		el, err = decodeEndNamespace(header, data)
	case chunkStartElement:
		el, err = decodeStartElement(header, data, pos, dataAbsOffset)
	case chunkEndElement:
		el, err = decodeEndElement(header, data)
	case chunkCData:
		el, err = decodeCData(header, data)
	default:
		el = &rawChunk{data: append([]byte(nil), buf[pos:pos+int(chunkSize)]...)}
	}
	if err != nil {
		return nil, 0, err
	}
	return el, int(chunkSize), nil
}

// Bytes re-encodes the document, reproducing the original buffer
// exactly when the document has not been structurally modified.
func (doc *Document) Bytes() []byte {
	w := &writer{}
	w.raw(doc.strings.encode())
	if doc.resources != nil {
		w.raw(doc.resources.encode())
	}
	for _, n := range doc.nodes {
		w.raw(n.encode())
	}
	return encodeChunk(uint16(fileMagic&0xffff), nil, w.buf)
}

// manifestElement returns the single top-level <manifest> start
// element, the root of every AndroidManifest.xml.
func (doc *Document) manifestElement() (*startElement, error) {
	for _, n := range doc.nodes {
		if se, ok := n.(*startElement); ok {
			name, err := doc.stringAt(se.nameIdx)
			if err != nil {
				return nil, err
			}
			if name == "manifest" {
				return se, nil
			}
		}
	}
	return nil, fmt.Errorf("axml: no manifest root element: %w", apkerr.ManifestParseFailed)
}

func (doc *Document) stringAt(idx int32) (string, error) {
	if idx < 0 {
		return "", nil
	}
	if int(idx) >= len(doc.strings.strings) {
		return "", apkerr.StringIndexOutOfRange
	}
	return doc.strings.strings[int(idx)], nil
}
